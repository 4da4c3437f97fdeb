// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Kind classifies a user-supplied paper identifier.
type Kind int

const (
	KindUnknown Kind = iota
	KindArxiv
	KindDOI
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindArxiv:
		return "arxiv"
	case KindDOI:
		return "doi"
	case KindURL:
		return "url"
	default:
		return "unknown"
	}
}

// Base URLs for identifier resolution. Declared as vars so tests can
// substitute httptest servers.
var (
	arxivPDFBase    = "https://arxiv.org/pdf/"
	arxivAPIBase    = "https://export.arxiv.org/api/query"
	doiBase         = "https://doi.org/"
	crossrefAPIBase = "https://api.crossref.org/works/"
)

var (
	// 2301.07041, arXiv:2301.07041v2, and pre-2007 IDs such as hep-th/9901001.
	arxivPattern = regexp.MustCompile(`^(?i:arxiv:)?(\d{4}\.\d{4,5}(?:v\d+)?|[a-z-]+(?:\.[A-Z]{2})?/\d{7}(?:v\d+)?)$`)
	doiPattern   = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)
)

// arxivHosts serve abstract and PDF pages whose path names the arXiv ID.
var arxivHosts = map[string]bool{"arxiv.org": true, "www.arxiv.org": true, "export.arxiv.org": true}

// Identifier is a classified paper identifier. Value is the normalized
// form: a bare arXiv ID, a bare DOI, or the URL as given.
type Identifier struct {
	Kind  Kind
	Value string
}

// ParseIdentifier classifies raw. arxiv.org abstract/PDF links become arXiv
// IDs and doi.org links become DOIs; other http(s) URLs are taken as direct
// PDF locations.
func ParseIdentifier(raw string) Identifier {
	raw = strings.TrimSpace(raw)

	if m := arxivPattern.FindStringSubmatch(raw); m != nil {
		return Identifier{Kind: KindArxiv, Value: m[1]}
	}
	if doiPattern.MatchString(raw) {
		return Identifier{Kind: KindDOI, Value: raw}
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Identifier{Kind: KindUnknown, Value: raw}
	}
	host := strings.ToLower(u.Host)
	switch {
	case arxivHosts[host]:
		if id, ok := arxivIDFromPath(u.Path); ok {
			return Identifier{Kind: KindArxiv, Value: id}
		}
	case host == "doi.org" || host == "dx.doi.org":
		if doi := strings.TrimPrefix(u.Path, "/"); doiPattern.MatchString(doi) {
			return Identifier{Kind: KindDOI, Value: doi}
		}
	}
	return Identifier{Kind: KindURL, Value: raw}
}

func arxivIDFromPath(p string) (string, bool) {
	for _, prefix := range []string{"/abs/", "/pdf/"} {
		if rest, ok := strings.CutPrefix(p, prefix); ok {
			rest = strings.TrimSuffix(rest, ".pdf")
			if m := arxivPattern.FindStringSubmatch(rest); m != nil {
				return m[1], true
			}
		}
	}
	return "", false
}

// PaperID returns a stable paper ID: the arXiv ID itself, the DOI with
// '/' and ':' replaced by '-', or the URL's file stem.
func (id Identifier) PaperID() string {
	switch id.Kind {
	case KindArxiv:
		return strings.ReplaceAll(id.Value, "/", "-")
	case KindDOI:
		return strings.NewReplacer("/", "-", ":", "-").Replace(id.Value)
	case KindURL:
		u, err := url.Parse(id.Value)
		if err != nil {
			return urlHashID(id.Value)
		}
		stem := strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
		if stem == "" || stem == "." || stem == "/" {
			return urlHashID(id.Value)
		}
		return stem
	default:
		return "unknown"
	}
}

// PDFURL returns where the PDF is downloaded from. DOIs go through the
// doi.org resolver and rely on the client following redirects.
func (id Identifier) PDFURL() string {
	switch id.Kind {
	case KindArxiv:
		return arxivPDFBase + id.Value
	case KindDOI:
		return doiBase + id.Value
	case KindURL:
		return id.Value
	default:
		return ""
	}
}

func urlHashID(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return fmt.Sprintf("url-%x", h[:8])
}
