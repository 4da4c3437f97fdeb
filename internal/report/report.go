// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders generated research text as a PDF document.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	fontFamily = "Helvetica"
	lineHeight = 5.5
)

// Report is a titled block of text.
type Report struct {
	Title    string
	Subtitle string
	Body     string
}

var kindTitles = map[types.GenerationKind]string{
	types.GenFutureWork:      "Future Research Directions",
	types.GenResearchIdeas:   "Future Research Ideas",
	types.GenReviewPaper:     "Review Paper",
	types.GenImprovementPlan: "Improvement Plan",
}

// FromGeneration builds a report from generated text, listing the papers
// it was based on at the end.
func FromGeneration(gen types.Generation) Report {
	title, ok := kindTitles[gen.Kind]
	if !ok {
		title = "Research Report"
	}
	r := Report{
		Title:    fmt.Sprintf("%s: %s", title, gen.Topic),
		Subtitle: "Generated " + gen.Timestamp.Format("January 2, 2006"),
		Body:     gen.Text,
	}
	if len(gen.BasedOnPapers) > 0 {
		var sb strings.Builder
		sb.WriteString(strings.TrimRight(gen.Text, "\n"))
		sb.WriteString("\n\n# Based on papers\n")
		for i, p := range gen.BasedOnPapers {
			year := "n.d."
			if p.Year != nil {
				year = fmt.Sprint(*p.Year)
			}
			fmt.Fprintf(&sb, "[%d] %s (%s) %s\n", i+1, p.Title, year, p.PaperID)
		}
		r.Body = sb.String()
	}
	return r
}

// WritePDF renders r as an A4 PDF to w. Lines starting with '#' become
// headings; blank lines separate paragraphs.
func WritePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 18)
	pdf.MultiCell(0, 9, tr(r.Title), "", "L", false)
	if r.Subtitle != "" {
		pdf.SetFont(fontFamily, "I", 11)
		pdf.SetTextColor(90, 90, 90)
		pdf.MultiCell(0, 7, tr(r.Subtitle), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	for _, line := range strings.Split(r.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			pdf.Ln(lineHeight / 2)
		case strings.HasPrefix(trimmed, "#"):
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			size := 15.0 - float64(min(level, 3))
			pdf.Ln(2)
			pdf.SetFont(fontFamily, "B", size)
			pdf.MultiCell(0, 7, tr(strings.TrimSpace(trimmed[level:])), "", "L", false)
		default:
			pdf.SetFont(fontFamily, "", 11)
			pdf.MultiCell(0, lineHeight, tr(strings.ReplaceAll(trimmed, "**", "")), "", "L", false)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering PDF: %w", err)
	}
	return nil
}
