package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/storage"
)

var (
	listVenue   string
	listYear    int
	listAuthor  string
	listKeyword string
	listLimit   int
)

func init() {
	listCmd.Flags().StringVar(&listVenue, "venue", "", "Filter by venue slug")
	listCmd.Flags().IntVar(&listYear, "year", 0, "Filter by publication year")
	listCmd.Flags().StringVar(&listAuthor, "author", "", "Filter by author name")
	listCmd.Flags().StringVar(&listKeyword, "keyword", "", "Full-text search over title and abstract")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum results to return (0 = all)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers in the catalog",
	Long: `List papers, optionally filtered by venue, year, author, or a
full-text keyword.

Examples:
  mla list
  mla list --venue icml --year 2023
  mla list --author Vaswani --keyword attention --limit 20`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	papers, err := db.List(storage.ListFilters{
		Venue:   listVenue,
		Year:    listYear,
		Author:  listAuthor,
		Keyword: listKeyword,
	}, listLimit)
	if err != nil {
		exitWithError(ExitError, "listing papers: %v", err)
	}

	if humanOutput {
		if len(papers) == 0 {
			fmt.Println("No papers match")
			return nil
		}
		total, _, _ := db.Counts()
		if listLimit > 0 && listLimit < total {
			fmt.Printf("showing %d of %d papers:\n\n", len(papers), total)
		} else {
			fmt.Printf("%d papers:\n\n", len(papers))
		}
		for _, p := range papers {
			fmt.Printf("  %-36s %s\n", p.Key, truncateString(p.Title, ListTitleMaxLen))
		}
	} else {
		if papers == nil {
			papers = []catalog.Paper{}
		}
		outputJSON(papers)
	}

	return nil
}
