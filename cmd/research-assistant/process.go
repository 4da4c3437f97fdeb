// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/knowledge"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process [identifiers...]",
	Short: "Fetch PDFs and extract text, sections and figure/table captions",
	Long: `Process resolves paper identifiers (arXiv IDs, DOIs, direct PDF URLs),
downloads each PDF, extracts its text, splits it into sections, finds
figure and table captions, and stores the enriched records under --topic.

Without identifiers, process enriches the papers already stored under
--topic that have no content yet.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().String("topic", "", "topic to store the papers under")
	processCmd.Flags().String("headings", "", "YAML file with the section heading vocabulary")
	processCmd.Flags().String("page-policy", "", "page failure policy: strict or lenient")
	processCmd.Flags().Bool("all", false, "with no identifiers, reprocess papers that already have content")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	headingsFile, _ := cmd.Flags().GetString("headings")
	all, _ := cmd.Flags().GetBool("all")
	if cmd.Flags().Changed("page-policy") {
		raw, _ := cmd.Flags().GetString("page-policy")
		policy, err := types.ParsePagePolicy(raw)
		if err != nil {
			return err
		}
		cfg.Extract.PagePolicy = policy
	}
	if len(args) == 0 && topic == "" {
		return fmt.Errorf("provide paper identifiers (arXiv IDs, DOIs, or URLs) or --topic")
	}

	ctx := cmd.Context()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var papers []*types.Paper
	if len(args) > 0 {
		resolver := newResolver()
		for _, id := range args {
			p, err := resolver.Resolve(ctx, id)
			if err != nil {
				fmt.Fprintf(os.Stdout, "failed:  %s (%v)\n", id, err)
				continue
			}
			papers = append(papers, p)
		}
	} else {
		stored, err := store.PapersByTopic(ctx, topic, knowledge.YearRange{})
		if err != nil {
			return err
		}
		for _, p := range stored {
			if all || !p.HasContent() {
				papers = append(papers, p)
			}
		}
		if len(papers) == 0 {
			fmt.Fprintf(os.Stdout, "Nothing to process under %q\n", topic)
			return nil
		}
	}

	p, err := newPipeline(headingsFile)
	if err != nil {
		return err
	}
	result := p.ProcessBatch(ctx, papers, os.Stdout)

	stored := store.StorePapers(ctx, papers, topic)
	fmt.Fprintf(os.Stdout, "Stored %d papers\n", stored)

	if resolveFailures := len(args) - len(papers); len(args) > 0 && resolveFailures > 0 {
		return fmt.Errorf("%d identifier(s) could not be resolved", resolveFailures)
	}
	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed processing, %d retryable", result.Failed, result.Retryable)
	}
	return nil
}
