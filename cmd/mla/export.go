package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/export"
	"github.com/mlanthology/anthology/internal/normalize"
	"github.com/mlanthology/anthology/internal/storage"
)

var (
	exportVenue  string
	exportYear   int
	exportAuthor string
)

func init() {
	exportCmd.Flags().StringVar(&exportVenue, "venue", "", "Filter by venue slug")
	exportCmd.Flags().IntVar(&exportYear, "year", 0, "Filter by publication year")
	exportCmd.Flags().StringVar(&exportAuthor, "author", "", "Filter by author name")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [key...]",
	Short: "Export papers as BibTeX",
	Long: `Export papers as BibTeX entries keyed by their citation keys.

With citation key arguments, export exactly those papers. With no
arguments, export everything matching the filters.

Examples:
  mla export vaswani2017neurips-attention
  mla export --venue icml --year 2023`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	venues, err := normalize.LoadVenues(cfg.VenuesPath(repoRoot))
	if err != nil {
		exitWithError(ExitConfigError, "loading venue table: %v", err)
	}

	var papers []*catalog.Paper
	if len(args) > 0 {
		for _, key := range args {
			p, err := db.GetByKey(key)
			if err != nil {
				exitWithError(ExitError, "getting paper: %v", err)
			}
			if p == nil {
				exitWithError(ExitError, "paper not found: %s", key)
			}
			papers = append(papers, p)
		}
	} else {
		listed, err := db.List(storage.ListFilters{
			Venue:  exportVenue,
			Year:   exportYear,
			Author: exportAuthor,
		}, 0)
		if err != nil {
			exitWithError(ExitError, "listing papers: %v", err)
		}
		for i := range listed {
			papers = append(papers, &listed[i])
		}
	}

	// BibTeX is text either way; --human changes nothing here.
	fmt.Print(export.ToBibTeXList(papers, venues))
	return nil
}
