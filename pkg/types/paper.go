// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research-assistant
// pipeline: paper records, their extracted structure, and stage configuration.
package types

import (
	"strconv"
	"time"
)

// FullTextSection is the synthetic section label used when no recognized
// heading occurs in a paper's text.
const FullTextSection = "Full Text"

// SectionMap maps a heading label to the span of extracted text that starts
// at that heading. It is a name-keyed map: a heading that occurs twice keeps
// only its last span.
type SectionMap map[string]string

// RefType distinguishes figure references from table references.
type RefType string

const (
	RefFigure RefType = "figure"
	RefTable  RefType = "table"
)

// FigureTableRef describes one caption mention of a figure or table found in
// a paper's extracted text.
type FigureTableRef struct {
	// Type is "figure" or "table".
	Type RefType `json:"type" yaml:"type"`

	// Number is the label as matched (not necessarily unique or sequential).
	Number string `json:"number" yaml:"number"`

	// Caption is the trimmed text after the label up to the first period.
	Caption string `json:"caption" yaml:"caption"`

	// Text is the raw matched span.
	Text string `json:"text" yaml:"text"`
}

// Paper is the enriched representation of one academic paper. Search fills
// the metadata fields; the PDF pipeline fills Content, Sections and
// FiguresTables when processing succeeds.
type Paper struct {
	// PaperID is the unique identity (e.g. "2301.07041v1").
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// PublishedDate is the publication date as reported by the source,
	// normally YYYY-MM-DD.
	PublishedDate string `json:"published_date,omitempty" yaml:"published_date,omitempty"`

	// Year is derived from PublishedDate; nil when unknown.
	Year *int `json:"year" yaml:"year"`

	// URL points at the paper's PDF.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Content is the extracted linear text; nil when not processed.
	Content *string `json:"content,omitempty" yaml:"content,omitempty"`

	// Sections is the segmented content; nil when not processed.
	Sections SectionMap `json:"sections,omitempty" yaml:"sections,omitempty"`

	// FiguresTables lists caption references; nil when not processed.
	FiguresTables []FigureTableRef `json:"figures_tables,omitempty" yaml:"figures_tables,omitempty"`

	// Topics lists the topics the paper belongs to. Populated on reads.
	Topics []string `json:"topics,omitempty" yaml:"topics,omitempty"`
}

// HasContent reports whether the PDF pipeline attached content to the paper.
func (p *Paper) HasContent() bool {
	return p.Content != nil
}

// YearOr returns the paper's year, or fallback when it is unknown.
func (p *Paper) YearOr(fallback int) int {
	if p.Year == nil {
		return fallback
	}
	return *p.Year
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// DeriveYear computes a year from a published date. A YYYY-MM-DD date
// yields its year; otherwise the first four characters are parsed as an
// integer; otherwise the year is unknown (nil).
func DeriveYear(publishedDate string) *int {
	if publishedDate == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", publishedDate); err == nil {
		return IntPtr(t.Year())
	}
	if len(publishedDate) < 4 {
		return nil
	}
	y, err := strconv.Atoi(publishedDate[:4])
	if err != nil {
		return nil
	}
	return &y
}
