// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/llm"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about stored papers",
	Long: `Ask sends a question to the configured model together with excerpts of
the papers named by --paper. With --single the question is answered from
the full text of exactly one paper.

Examples:
  research-assistant ask "What datasets are used?" --paper 2301.07041 --paper 2302.00001
  research-assistant ask "Summarize the method" --paper 2301.07041 --single`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	paperIDs, _ := cmd.Flags().GetStringArray("paper")
	topic, _ := cmd.Flags().GetString("topic")
	single, _ := cmd.Flags().GetBool("single")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if single && len(paperIDs) != 1 {
		return fmt.Errorf("--single needs exactly one --paper")
	}

	a, store, closeAll, err := newAssistant()
	if err != nil {
		return err
	}
	defer closeAll()

	ctx := cmd.Context()
	question := joinArgs(args)

	var result types.QAResult
	if single {
		p, err := store.PaperByID(ctx, paperIDs[0])
		if err != nil {
			return err
		}
		result = a.AnswerSinglePaper(ctx, question, p)
	} else {
		result = a.AnswerQuestion(ctx, question, paperIDs, topic)
	}
	result.Answer = llm.StripThinking(result.Answer)

	if jsonOutput {
		return writeJSON(os.Stdout, result)
	}
	formatAnswer(os.Stdout, result)
	return nil
}

func formatAnswer(w io.Writer, r types.QAResult) {
	fmt.Fprintf(w, "%s\n", r.Answer)
	if len(r.Papers) > 0 {
		fmt.Fprintln(w, "\nPapers:")
		for i, p := range r.Papers {
			fmt.Fprintf(w, "  [%d] %s (%s)\n", i+1, p.Title, p.PaperID)
		}
	}
	if len(r.Citations) > 0 {
		fmt.Fprintln(w, "\nCitations:")
		for _, c := range r.Citations {
			fmt.Fprintf(w, "  %s\n", c.FullCitation)
		}
	}
}

func init() {
	askCmd.Flags().StringArray("paper", nil, "paper ID to answer from (repeatable)")
	askCmd.Flags().String("topic", "", "topic the question is about")
	askCmd.Flags().Bool("single", false, "answer from one paper's full text")
	askCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(askCmd)
}
