// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/knowledge"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Browse, clear and export stored papers",
	Long: `Papers manages the local paper database. Papers are grouped by the
topic they were searched or processed under.`,
}

// --- list subcommand ---

var papersListCmd = &cobra.Command{
	Use:   "list <topic>",
	Short: "List the papers stored under a topic",
	Long: `List prints the papers of a topic, newest first and then by title.
--year-from and --year-to bound the publication year inclusively; papers
without a known year are listed last and excluded by either bound.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPapersList,
}

func runPapersList(cmd *cobra.Command, args []string) error {
	var years knowledge.YearRange
	if cmd.Flags().Changed("year-from") {
		v, _ := cmd.Flags().GetInt("year-from")
		years.From = &v
	}
	if cmd.Flags().Changed("year-to") {
		v, _ := cmd.Flags().GetInt("year-to")
		years.To = &v
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	topic := joinArgs(args)
	papers, err := store.PapersByTopic(cmd.Context(), topic, years)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, map[string]any{"topic": topic, "paper_count": len(papers), "papers": papers})
	}
	formatPaperTable(os.Stdout, papers)
	return nil
}

func formatPaperTable(w io.Writer, papers []*types.Paper) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	fmt.Fprintf(w, "%-22s  %-4s  %-7s  %s\n", "ID", "Year", "Content", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, p := range papers {
		year := "----"
		if p.Year != nil {
			year = fmt.Sprint(*p.Year)
		}
		content := "no"
		if p.HasContent() {
			content = "yes"
		}
		fmt.Fprintf(w, "%-22s  %-4s  %-7s  %s\n", clip(p.PaperID, 22), year, content, clip(p.Title, 60))
	}
	fmt.Fprintf(w, "\n%d papers\n", len(papers))
}

// --- show subcommand ---

var papersShowCmd = &cobra.Command{
	Use:   "show <paper-id>",
	Short: "Show one stored paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runPapersShow,
}

func runPapersShow(cmd *cobra.Command, args []string) error {
	withContent, _ := cmd.Flags().GetBool("content")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := store.PaperByID(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !withContent {
		p.Content = nil
	}
	if jsonOutput {
		return writeJSON(os.Stdout, p)
	}

	w := os.Stdout
	fmt.Fprintf(w, "%s\n%s\n\n", p.Title, strings.Repeat("=", min(len(p.Title), 80)))
	fmt.Fprintf(w, "ID:       %s\n", p.PaperID)
	fmt.Fprintf(w, "Authors:  %s\n", strings.Join(p.Authors, ", "))
	fmt.Fprintf(w, "Date:     %s\n", p.PublishedDate)
	fmt.Fprintf(w, "URL:      %s\n", p.URL)
	fmt.Fprintf(w, "Topics:   %s\n", strings.Join(p.Topics, ", "))
	fmt.Fprintf(w, "\n%s\n", p.Abstract)

	if len(p.Sections) > 0 {
		names := make([]string, 0, len(p.Sections))
		for name := range p.Sections {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "\nSections (%d):\n", len(names))
		for _, name := range names {
			fmt.Fprintf(w, "  %-24s %d chars\n", name, len([]rune(p.Sections[name])))
		}
	}
	if len(p.FiguresTables) > 0 {
		fmt.Fprintf(w, "\nFigures and tables (%d):\n", len(p.FiguresTables))
		for _, ref := range p.FiguresTables {
			fmt.Fprintf(w, "  %-6s %-4s %s\n", ref.Type, ref.Number, ref.Caption)
		}
	}
	if p.Content != nil {
		fmt.Fprintf(w, "\n%s\n", *p.Content)
	}
	return nil
}

// --- topics subcommand ---

var papersTopicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List all topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		topics, err := store.Topics(cmd.Context())
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			fmt.Println("No topics.")
			return nil
		}
		for _, t := range topics {
			fmt.Println(t)
		}
		return nil
	},
}

// --- clear subcommand ---

var papersClearCmd = &cobra.Command{
	Use:   "clear <topic>",
	Short: "Delete every paper stored under a topic",
	Long: `Clear deletes the papers linked to a topic, including their links to
other topics. The topic itself remains listed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		topic := joinArgs(args)
		n, err := store.ClearTopic(cmd.Context(), topic)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d papers from %q\n", n, topic)
		return nil
	},
}

// --- export subcommand ---

var papersExportCmd = &cobra.Command{
	Use:   "export <topic>",
	Short: "Export a topic's papers as YAML or JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPapersExport,
}

func runPapersExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	withContent, _ := cmd.Flags().GetBool("content")
	output, _ := cmd.Flags().GetString("output")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	w := io.Writer(os.Stdout)
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	if err := store.ExportTopic(cmd.Context(), joinArgs(args), format, withContent, w); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	papersListCmd.Flags().Int("year-from", 0, "earliest publication year (inclusive)")
	papersListCmd.Flags().Int("year-to", 0, "latest publication year (inclusive)")
	papersListCmd.Flags().Bool("json", false, "output as JSON")

	papersShowCmd.Flags().Bool("content", false, "include the extracted text")
	papersShowCmd.Flags().Bool("json", false, "output as JSON")

	papersExportCmd.Flags().String("format", knowledge.FormatYAML, "export format: yaml or json")
	papersExportCmd.Flags().Bool("content", false, "include extracted text")
	papersExportCmd.Flags().String("output", "", "write to file instead of stdout")

	papersCmd.AddCommand(papersListCmd, papersShowCmd, papersTopicsCmd, papersClearCmd, papersExportCmd)
	rootCmd.AddCommand(papersCmd)
}
