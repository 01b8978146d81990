// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docsmith/internal/config"
	"github.com/pdiddy/docsmith/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Query the document index (search, show, export)",
	Long: `Index reads the SQLite index that every successful build updates. Use
subcommands to search documents, print a document or one of its sections,
or export the index.`,
}

// --- search subcommand ---

var indexSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search documents by full text or title",
	Long: `Search matches the query against document titles and bodies using FTS5
full-text search. --title restricts results to the document with that
title, compared case-insensitively.`,
	RunE: runIndexSearch,
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	title, _ := cmd.Flags().GetString("title")
	limit, _ := cmd.Flags().GetInt("limit")
	opts := index.QueryOptions{
		Query:      strings.Join(args, " "),
		Title:      title,
		MaxResults: limit,
	}
	if opts.IsEmpty() {
		return errors.New("query or filter required: provide a search query or --title")
	}

	results, err := store.Search(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(cmd.OutOrStdout(), results, jsonOutput)
}

func formatSearchOutput(w io.Writer, results []index.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-30s  %-30s  %s\n", "Rank", "ID", "Title", "Path")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for i, r := range results {
		fmt.Fprintf(w, "%-4d  %-30s  %-30s  %s\n", i+1, truncate(r.ID, 30), truncate(r.Title, 30), r.Path)
		if r.Snippet != "" {
			fmt.Fprintf(w, "      %s\n", strings.Join(strings.Fields(r.Snippet), " "))
		}
	}

	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// --- show subcommand ---

var indexShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a document body or one of its sections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		section, _ := cmd.Flags().GetString("section")
		text, err := store.Section(cmd.Context(), args[0], section)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\r\n"))
		return nil
	},
}

// --- export subcommand ---

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index to YAML or JSON",
	Long: `Export writes the indexed documents (or the subset matching --query and
--title) to export.yaml or export.json in the index directory.`,
	RunE: runIndexExport,
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	query, _ := cmd.Flags().GetString("query")
	title, _ := cmd.Flags().GetString("title")
	opts := index.QueryOptions{Query: query, Title: title}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return errors.Newf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*index.Store, error) {
	if err := bindFlags(cmd, map[string]string{
		config.KeyIndexDir:        "index-dir",
		config.KeyIndexMaxResults: "max-results",
	}); err != nil {
		return nil, err
	}
	cfg := config.Load(viper.GetViper())
	return index.NewStore(cfg.Index)
}

func init() {
	indexCmd.PersistentFlags().String("index-dir", "", `index directory (default ".docsmith")`)
	indexCmd.PersistentFlags().Int("max-results", 0, "default maximum number of search results (default 20)")

	indexSearchCmd.Flags().String("title", "", "restrict results to this title")
	indexSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	indexSearchCmd.Flags().Bool("json", false, "output results as JSON")

	indexShowCmd.Flags().String("section", "", "print only the section under this heading")

	indexExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	indexExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	indexExportCmd.Flags().String("title", "", "title filter for partial export")

	indexCmd.AddCommand(indexSearchCmd)
	indexCmd.AddCommand(indexShowCmd)
	indexCmd.AddCommand(indexExportCmd)

	rootCmd.AddCommand(indexCmd)
}
