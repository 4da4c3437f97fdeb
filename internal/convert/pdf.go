// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert extracts plain text from downloaded PDF documents.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// PageSeparator joins the text of consecutive pages.
const PageSeparator = "\n\n"

// Extraction failures.
var (
	ErrMalformedPDF   = errors.New("malformed PDF")
	ErrPageExtraction = errors.New("page text extraction failed")
	ErrNoText         = errors.New("no extractable text")
)

// pageSource yields per-page text for a parsed document. Pages are numbered
// from 1.
type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

// PDFExtractor turns PDF bytes into plain text.
type PDFExtractor struct {
	policy types.PagePolicy
	open   func(data []byte) (pageSource, error)
}

// NewPDFExtractor creates an extractor with the given page policy. An empty
// policy means PageStrict.
func NewPDFExtractor(policy types.PagePolicy) *PDFExtractor {
	if policy == "" {
		policy = types.PageStrict
	}
	return &PDFExtractor{policy: policy, open: openPDF}
}

// Extract returns the text of every page in order, joined by
// PageSeparator. Under PageStrict any failing page fails the document;
// under PageLenient failing pages are dropped. Blank pages are kept, so a
// scanned document yields separators only; ErrNoText means no page at all
// produced text.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	src, err := e.open(data)
	if err != nil {
		return "", err
	}

	n := src.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := src.PageText(i)
		if err != nil {
			if e.policy == types.PageLenient {
				continue
			}
			return "", fmt.Errorf("%w: page %d: %v", ErrPageExtraction, i, err)
		}
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("%w (%d pages)", ErrNoText, n)
	}
	return strings.Join(pages, PageSeparator), nil
}

// openPDF sniffs and parses data with ledongthuc/pdf. Parser panics on
// corrupt input are reported as ErrMalformedPDF.
func openPDF(data []byte) (src pageSource, err error) {
	if mt := mimetype.Detect(data); !mt.Is("application/pdf") {
		return nil, fmt.Errorf("%w: detected %s", ErrMalformedPDF, mt.String())
	}

	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("%w: %v", ErrMalformedPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPDF, err)
	}
	return &readerSource{r: r}, nil
}

type readerSource struct {
	r *pdf.Reader
}

func (s *readerSource) NumPage() int { return s.r.NumPage() }

func (s *readerSource) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("panic: %v", r)
		}
	}()

	p := s.r.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	text, err = p.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	// The reader emits line breaks around each page's content.
	return strings.Trim(text, "\n"), nil
}
