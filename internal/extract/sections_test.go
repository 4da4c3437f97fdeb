// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func defaultSegmenter(t *testing.T) *Segmenter {
	t.Helper()
	s, err := NewSegmenter(nil)
	require.NoError(t, err)
	return s
}

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want types.SectionMap
	}{
		{
			name: "contiguous spans",
			text: "Introduction\nfoo\nMethod\nbar",
			want: types.SectionMap{
				"Introduction": "Introduction\nfoo\n",
				"Method":       "Method\nbar",
			},
		},
		{
			name: "no headings",
			text: "just some prose\nwithout any headings",
			want: types.SectionMap{types.FullTextSection: "just some prose\nwithout any headings"},
		},
		{
			name: "empty text",
			text: "",
			want: types.SectionMap{types.FullTextSection: ""},
		},
		{
			name: "preamble dropped",
			text: "Title of Paper\nA. Author\nAbstract: we study things.\nIntroduction\nbody",
			want: types.SectionMap{
				"Abstract":     "Abstract: we study things.\n",
				"Introduction": "Introduction\nbody",
			},
		},
		{
			name: "case insensitive",
			text: "ABSTRACT\nx\nconclusions\ny",
			want: types.SectionMap{
				"Abstract":   "ABSTRACT\nx\n",
				"Conclusion": "conclusions\ny",
			},
		},
		{
			name: "mid-line heading ignored",
			text: "Introduction\nas the Results show\nmore",
			want: types.SectionMap{"Introduction": "Introduction\nas the Results show\nmore"},
		},
		{
			name: "heading must be followed by space or colon",
			text: "Introduction\nResultsfoo\nDiscussion bar",
			want: types.SectionMap{
				"Introduction": "Introduction\nResultsfoo\n",
				"Discussion":   "Discussion bar",
			},
		},
		{
			name: "ordered alternatives",
			text: "Methodology\na\nResults and Discussion\nb\nExperiments\nc",
			want: types.SectionMap{
				"Methodology":            "Methodology\na\n",
				"Results and Discussion": "Results and Discussion\nb\n",
				"Experiments":            "Experiments\nc",
			},
		},
		{
			name: "adjacent headings",
			text: "Abstract\nIntroduction\nx",
			want: types.SectionMap{
				"Abstract":     "Abstract\n",
				"Introduction": "Introduction\nx",
			},
		},
	}
	s := defaultSegmenter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Segment(tt.text))
		})
	}
}

func TestSegment_DuplicateHeadingKeepsLast(t *testing.T) {
	text := "Results\nfirst run\nResults\nsecond run"
	got := defaultSegmenter(t).Segment(text)

	require.Len(t, got, 1)
	assert.Equal(t, "Results\nsecond run", got["Results"])
}

func TestSegment_SpansCoverTextFromFirstHeading(t *testing.T) {
	text := "preamble\nAbstract\na\nIntroduction\nb\nReferences\n[1] x"
	got := defaultSegmenter(t).Segment(text)

	joined := got["Abstract"] + got["Introduction"] + got["References"]
	assert.Equal(t, text[strings.Index(text, "Abstract"):], joined)
}

func TestSegment_NeverEmptyForNonEmptyText(t *testing.T) {
	s := defaultSegmenter(t)
	for _, text := range []string{"x", "Abstract ", "\n\n", "Figure 1: foo."} {
		assert.NotEmpty(t, s.Segment(text), "text %q", text)
	}
}

func TestNewSegmenter_CustomVocabulary(t *testing.T) {
	s, err := NewSegmenter([]types.Heading{
		{Label: "Methods", Pattern: `(Materials and )?Methods?`},
		{Label: "Summary"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Methods", "Summary"}, s.Labels())

	got := s.Segment("Materials and Methods\nprep\nSummary: done")
	assert.Equal(t, types.SectionMap{
		"Methods": "Materials and Methods\nprep\n",
		"Summary": "Summary: done",
	}, got)
}

func TestNewSegmenter_Errors(t *testing.T) {
	_, err := NewSegmenter([]types.Heading{{Label: "Bad", Pattern: `(unclosed`}})
	assert.Error(t, err)

	_, err = NewSegmenter([]types.Heading{{Label: " ", Pattern: `x`}})
	assert.Error(t, err)
}

func TestLoadHeadings(t *testing.T) {
	in := `headings:
  - label: Summary
    pattern: Summary
  - label: Methods
    pattern: Methods?
`
	got, err := LoadHeadings(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []types.Heading{
		{Label: "Summary", Pattern: "Summary"},
		{Label: "Methods", Pattern: "Methods?"},
	}, got)

	_, err = LoadHeadings(strings.NewReader("headings: []\n"))
	assert.Error(t, err)

	_, err = LoadHeadings(strings.NewReader("headings: [\n"))
	assert.Error(t, err)
}
