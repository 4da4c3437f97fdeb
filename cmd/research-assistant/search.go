// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <topic>",
	Short: "Search academic APIs for recent papers on a topic",
	Long: `Search queries arXiv and OpenAlex for papers matching a topic, merges
duplicates across sources, and keeps papers published within --years-back.
Results are stored under the topic unless --no-store is given. With
--process each result's PDF is fetched and its text, sections and
figure/table captions are stored too.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum results per source (default 10)")
	searchCmd.Flags().Int("years-back", 0, "keep papers from the last N years (default 5)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("no-store", false, "do not store results")
	searchCmd.Flags().Bool("process", false, "fetch and extract each paper's PDF before storing")
	searchCmd.Flags().String("headings", "", "YAML file with the section heading vocabulary")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	topic := joinArgs(args)
	maxResults, _ := cmd.Flags().GetInt("max-results")
	if maxResults == 0 {
		maxResults = cfg.Search.MaxResults
	}
	yearsBack, _ := cmd.Flags().GetInt("years-back")
	if yearsBack == 0 {
		yearsBack = cfg.Search.YearsBack
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noStore, _ := cmd.Flags().GetBool("no-store")
	process, _ := cmd.Flags().GetBool("process")
	headingsFile, _ := cmd.Flags().GetString("headings")

	ctx := cmd.Context()

	out, err := searchTopic(ctx, topic, maxResults, yearsBack, os.Stderr)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := search.FormatJSON(out, os.Stdout); err != nil {
			return err
		}
	} else {
		search.FormatTable(out, os.Stdout)
	}

	if process && len(out.Papers) > 0 {
		p, err := newPipeline(headingsFile)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr)
		p.ProcessBatch(ctx, out.Papers, os.Stderr)
	}

	if noStore {
		return nil
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stored := store.StorePapers(ctx, out.Papers, topic)
	fmt.Fprintf(os.Stderr, "Stored %d of %d papers under %q\n", stored, len(out.Papers), topic)
	return nil
}
