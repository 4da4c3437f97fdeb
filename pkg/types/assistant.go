// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PaperRef is the short form of a paper cited as the basis of a generated answer.
type PaperRef struct {
	PaperID string   `json:"paper_id" yaml:"paper_id"`
	Title   string   `json:"title" yaml:"title"`
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year    *int     `json:"year" yaml:"year"`
}

// Citation is an inline reference of the form "[Paper 2 - Title, Section Results]"
// found in a model answer.
type Citation struct {
	PaperNum     string `json:"paper_num" yaml:"paper_num"`
	PaperTitle   string `json:"paper_title" yaml:"paper_title"`
	Section      string `json:"section" yaml:"section"`
	FullCitation string `json:"full_citation" yaml:"full_citation"`
}

// QAResult is the answer to a question asked over one or more papers.
type QAResult struct {
	Question  string     `json:"question" yaml:"question"`
	Answer    string     `json:"answer" yaml:"answer"`
	Papers    []PaperRef `json:"papers,omitempty" yaml:"papers,omitempty"`
	Citations []Citation `json:"citations,omitempty" yaml:"citations,omitempty"`
	Timestamp time.Time  `json:"timestamp" yaml:"timestamp"`
}

// GenerationKind names a kind of generated research text.
type GenerationKind string

const (
	GenFutureWork      GenerationKind = "future"
	GenResearchIdeas   GenerationKind = "ideas"
	GenReviewPaper     GenerationKind = "review"
	GenImprovementPlan GenerationKind = "plan"
)

// Generation is model-generated research text about a topic together with
// the papers it was based on.
type Generation struct {
	Kind          GenerationKind `json:"kind" yaml:"kind"`
	Topic         string         `json:"topic" yaml:"topic"`
	Text          string         `json:"text" yaml:"text"`
	BasedOnPapers []PaperRef     `json:"based_on_papers,omitempty" yaml:"based_on_papers,omitempty"`
	Timestamp     time.Time      `json:"timestamp" yaml:"timestamp"`
}
