// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"

	"github.com/pdiddy/research-assistant/pkg/types"
)

var (
	figurePattern = regexp.MustCompile(`(?i)(?:Figure|Fig\.?)\s+(\d+)[:.]?\s*([^.]+)`)
	tablePattern  = regexp.MustCompile(`(?i)Table\s+(\d+)[:.]?\s*([^.]+)`)
)

// ExtractReferences finds figure and table caption mentions in text. All
// figures are returned first in document order, then all tables. Captions
// end at the first period, so a caption with an internal period is cut
// short. Repeated mentions are not merged.
func ExtractReferences(text string) []types.FigureTableRef {
	refs := scan([]types.FigureTableRef{}, figurePattern, types.RefFigure, text)
	return scan(refs, tablePattern, types.RefTable, text)
}

func scan(refs []types.FigureTableRef, re *regexp.Regexp, kind types.RefType, text string) []types.FigureTableRef {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		refs = append(refs, types.FigureTableRef{
			Type:    kind,
			Number:  m[1],
			Caption: strings.TrimSpace(m[2]),
			Text:    m[0],
		})
	}
	return refs
}
