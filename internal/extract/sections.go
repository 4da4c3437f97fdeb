// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract recovers structure from a paper's plain text: named
// sections delimited by recognized headings, and figure/table caption
// references.
package extract

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// DefaultHeadings is the built-in heading vocabulary. Order resolves ties
// between alternatives that match at the same position: "Methodology" is
// tried before "Method" and "Results and Discussion" before "Results".
var DefaultHeadings = []types.Heading{
	{Label: "Abstract", Pattern: `Abstract`},
	{Label: "Introduction", Pattern: `Introduction`},
	{Label: "Related Work", Pattern: `Related Work`},
	{Label: "Background", Pattern: `Background`},
	{Label: "Methodology", Pattern: `Methodology`},
	{Label: "Method", Pattern: `Method`},
	{Label: "Approach", Pattern: `Approach`},
	{Label: "Experiments", Pattern: `Experiment[s]?`},
	{Label: "Evaluation", Pattern: `Evaluation`},
	{Label: "Results and Discussion", Pattern: `Results? (?:and|&) Discussion`},
	{Label: "Results", Pattern: `Results?`},
	{Label: "Discussion", Pattern: `Discussion`},
	{Label: "Conclusion", Pattern: `Conclusion[s]?`},
	{Label: "Future Work", Pattern: `Future Work`},
	{Label: "References", Pattern: `References`},
	{Label: "Appendix", Pattern: `Appendix`},
}

// Segmenter partitions text into sections at recognized headings. It is
// safe for concurrent use.
type Segmenter struct {
	re     *regexp.Regexp
	labels []string
	groups []int // capture group index of each heading alternative
}

// NewSegmenter compiles headings into a single matcher. A heading matches
// case-insensitively at the start of the text or of a line, and must be
// followed by whitespace or a colon. An empty vocabulary selects
// DefaultHeadings.
func NewSegmenter(headings []types.Heading) (*Segmenter, error) {
	if len(headings) == 0 {
		headings = DefaultHeadings
	}

	s := &Segmenter{}
	alts := make([]string, 0, len(headings))
	group := 1
	for _, h := range headings {
		if strings.TrimSpace(h.Label) == "" {
			return nil, fmt.Errorf("heading with pattern %q has no label", h.Pattern)
		}
		if h.Pattern == "" {
			h.Pattern = regexp.QuoteMeta(h.Label)
		}
		sub, err := regexp.Compile(h.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling heading %q: %w", h.Label, err)
		}
		alts = append(alts, "("+h.Pattern+")")
		s.labels = append(s.labels, h.Label)
		s.groups = append(s.groups, group)
		group += 1 + sub.NumSubexp()
	}

	re, err := regexp.Compile(`(?im)^(?:` + strings.Join(alts, "|") + `)[\s:]`)
	if err != nil {
		return nil, fmt.Errorf("compiling heading vocabulary: %w", err)
	}
	s.re = re
	return s, nil
}

// Segment maps each recognized heading label to the text running from that
// heading up to the next recognized heading, or to the end of text. Text
// before the first heading is dropped. A label seen twice keeps its last
// span. When no heading is found the whole text is returned under
// types.FullTextSection.
func (s *Segmenter) Segment(text string) types.SectionMap {
	matches := s.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return types.SectionMap{types.FullTextSection: text}
	}

	sections := make(types.SectionMap, len(matches))
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections[s.labelOf(m)] = text[m[0]:end]
	}
	return sections
}

// Labels returns the vocabulary labels in match priority order.
func (s *Segmenter) Labels() []string {
	return append([]string(nil), s.labels...)
}

func (s *Segmenter) labelOf(m []int) string {
	for i, g := range s.groups {
		if m[2*g] >= 0 {
			return s.labels[i]
		}
	}
	return types.FullTextSection
}

// headingsFile is the on-disk layout of a custom heading vocabulary.
type headingsFile struct {
	Headings []types.Heading `yaml:"headings"`
}

// LoadHeadings reads a YAML heading vocabulary of the form
//
//	headings:
//	  - label: Methods
//	    pattern: Methods?
func LoadHeadings(r io.Reader) ([]types.Heading, error) {
	var f headingsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing headings: %w", err)
	}
	if len(f.Headings) == 0 {
		return nil, fmt.Errorf("headings file defines no headings")
	}
	return f.Headings, nil
}
