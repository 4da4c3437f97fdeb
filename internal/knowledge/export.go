// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// TopicExport is the document written by ExportTopic.
type TopicExport struct {
	Topic      string         `json:"topic" yaml:"topic"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
	Count      int            `json:"count" yaml:"count"`
	Papers     []*types.Paper `json:"papers" yaml:"papers"`
}

// ExportTopic writes every paper of topic to w as YAML or JSON. Content is
// omitted unless withContent is set.
func (s *Store) ExportTopic(ctx context.Context, topic, format string, withContent bool, w io.Writer) error {
	papers, err := s.PapersByTopic(ctx, topic, YearRange{})
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	if !withContent {
		for _, p := range papers {
			p.Content = nil
		}
	}

	doc := TopicExport{
		Topic:      topic,
		ExportedAt: time.Now().UTC().Truncate(time.Second),
		Count:      len(papers),
		Papers:     papers,
	}

	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q (use yaml or json)", format)
	}
}
