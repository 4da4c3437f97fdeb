// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import "testing"

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Identifier
	}{
		{"arxiv bare", "2301.07041", Identifier{KindArxiv, "2301.07041"}},
		{"arxiv prefixed", "arXiv:2301.07041", Identifier{KindArxiv, "2301.07041"}},
		{"arxiv lowercase prefix", "arxiv:2301.07041", Identifier{KindArxiv, "2301.07041"}},
		{"arxiv versioned", "2301.07041v2", Identifier{KindArxiv, "2301.07041v2"}},
		{"arxiv five digit", "2301.12345", Identifier{KindArxiv, "2301.12345"}},
		{"arxiv legacy", "hep-th/9901001", Identifier{KindArxiv, "hep-th/9901001"}},
		{"arxiv abs url", "https://arxiv.org/abs/2301.07041v3", Identifier{KindArxiv, "2301.07041v3"}},
		{"arxiv pdf url", "https://arxiv.org/pdf/2301.07041.pdf", Identifier{KindArxiv, "2301.07041"}},
		{"doi simple", "10.1145/1234567.1234568", Identifier{KindDOI, "10.1145/1234567.1234568"}},
		{"doi nature", "10.1038/s41586-024-07487-w", Identifier{KindDOI, "10.1038/s41586-024-07487-w"}},
		{"doi url", "https://doi.org/10.1145/1234567", Identifier{KindDOI, "10.1145/1234567"}},
		{"url https", "https://example.com/paper.pdf", Identifier{KindURL, "https://example.com/paper.pdf"}},
		{"url http", "http://example.com/paper.pdf", Identifier{KindURL, "http://example.com/paper.pdf"}},
		{"arxiv listing url", "https://arxiv.org/list/cs.CL/recent", Identifier{KindURL, "https://arxiv.org/list/cs.CL/recent"}},
		{"unknown bare word", "not-an-id", Identifier{KindUnknown, "not-an-id"}},
		{"unknown ftp", "ftp://example.com/a.pdf", Identifier{KindUnknown, "ftp://example.com/a.pdf"}},
		{"unknown empty", "", Identifier{KindUnknown, ""}},
		{"whitespace trimmed", "  2301.07041  ", Identifier{KindArxiv, "2301.07041"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseIdentifier(tt.input); got != tt.want {
				t.Errorf("ParseIdentifier(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIdentifierPaperID(t *testing.T) {
	tests := []struct {
		name string
		id   Identifier
		want string
	}{
		{"arxiv", Identifier{KindArxiv, "2301.07041"}, "2301.07041"},
		{"arxiv legacy", Identifier{KindArxiv, "hep-th/9901001"}, "hep-th-9901001"},
		{"doi", Identifier{KindDOI, "10.1145/1234567.1234568"}, "10.1145-1234567.1234568"},
		{"url with filename", Identifier{KindURL, "https://example.com/my-paper.pdf"}, "my-paper"},
		{"url no filename", Identifier{KindURL, "https://example.com/"}, urlHashID("https://example.com/")},
		{"unknown", Identifier{KindUnknown, "x"}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.PaperID(); got != tt.want {
				t.Errorf("PaperID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentifierPDFURL(t *testing.T) {
	tests := []struct {
		name string
		id   Identifier
		want string
	}{
		{"arxiv", Identifier{KindArxiv, "2301.07041"}, arxivPDFBase + "2301.07041"},
		{"doi", Identifier{KindDOI, "10.1145/1234567"}, doiBase + "10.1145/1234567"},
		{"url passthrough", Identifier{KindURL, "https://example.com/paper.pdf"}, "https://example.com/paper.pdf"},
		{"unknown empty", Identifier{KindUnknown, "foo"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.PDFURL(); got != tt.want {
				t.Errorf("PDFURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{
		KindArxiv:   "arxiv",
		KindDOI:     "doi",
		KindURL:     "url",
		KindUnknown: "unknown",
	} {
		if got := k.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
