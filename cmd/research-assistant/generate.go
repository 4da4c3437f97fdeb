// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/knowledge"
	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/internal/report"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate <future|ideas|review|plan> <topic>",
	Short: "Generate research text from a topic's stored papers",
	Long: `Generate asks the configured model for one kind of research text:

  future  future research directions for the topic
  ideas   5-7 research ideas from the 10 most recent papers
  review  a review paper over up to 15 papers
  plan    a research improvement plan from the 8 most recent papers

ideas, review and plan use papers stored under the topic; --years-back
restricts them to recent publications. --pdf also writes the text as a
PDF report.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	yearsBack, _ := cmd.Flags().GetInt("years-back")
	pdfPath, _ := cmd.Flags().GetString("pdf")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	kind := types.GenerationKind(args[0])
	topic := joinArgs(args[1:])

	a, store, closeAll, err := newAssistant()
	if err != nil {
		return err
	}
	defer closeAll()

	ctx := cmd.Context()
	var gen types.Generation
	if kind == types.GenFutureWork {
		if yearsBack <= 0 {
			yearsBack = cfg.Search.YearsBack
		}
		gen = a.FutureWork(ctx, topic, yearsBack)
	} else {
		var papers []*types.Paper
		if yearsBack > 0 {
			papers, err = store.PapersLastNYears(ctx, topic, yearsBack)
		} else {
			papers, err = store.PapersByTopic(ctx, topic, knowledge.YearRange{})
		}
		if err != nil {
			return err
		}
		if len(papers) == 0 {
			return fmt.Errorf("no papers stored for topic %q", topic)
		}
		if gen, err = a.Generate(ctx, kind, papers, topic); err != nil {
			return err
		}
	}
	gen.Text = llm.StripThinking(gen.Text)

	if pdfPath != "" {
		f, err := os.Create(pdfPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", pdfPath, err)
		}
		if err := report.WritePDF(f, report.FromGeneration(gen)); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", pdfPath, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", pdfPath)
	}

	if jsonOutput {
		return writeJSON(os.Stdout, gen)
	}
	fmt.Println(gen.Text)
	if len(gen.BasedOnPapers) > 0 {
		fmt.Printf("\nBased on %d papers\n", len(gen.BasedOnPapers))
	}
	return nil
}

func init() {
	generateCmd.Flags().Int("years-back", 0, "only use papers from the last N years (future: default from config)")
	generateCmd.Flags().String("pdf", "", "also write the text as a PDF report")
	generateCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(generateCmd)
}
