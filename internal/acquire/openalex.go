// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// openAlexAPIBase is the OpenAlex single-work endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works/"

type openAlexWork struct {
	BestOALocation *struct {
		PDFURL string `json:"pdf_url"`
	} `json:"best_oa_location"`
	OpenAccess struct {
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
}

// openAccessPDF looks a DOI up in OpenAlex and returns the best open-access
// PDF location, or "" when OpenAlex knows of none. The generic oa_url is
// used only when it points at a PDF.
func (r *Resolver) openAccessPDF(ctx context.Context, doi string) (string, error) {
	apiURL := openAlexAPIBase + "https://doi.org/" + doi
	if r.mailto != "" {
		apiURL += "?mailto=" + url.QueryEscape(r.mailto)
	}

	body, err := r.get(ctx, "OpenAlex", apiURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var work openAlexWork
	if err := json.NewDecoder(body).Decode(&work); err != nil {
		return "", fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	if loc := work.BestOALocation; loc != nil && loc.PDFURL != "" {
		return loc.PDFURL, nil
	}
	if IsPDFResponse(work.OpenAccess.OAURL, "") {
		return work.OpenAccess.OAURL, nil
	}
	return "", nil
}
