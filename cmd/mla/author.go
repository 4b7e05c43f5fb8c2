package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(authorCmd)
}

var authorCmd = &cobra.Command{
	Use:   "author <slug>",
	Short: "Get a single author by slug",
	Long: `Get a single author by slug, including every name variant seen in
source data and the citation keys of their papers.

Example:
  mla author vaswani-ashish`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthor,
}

func runAuthor(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	a, err := db.GetAuthor(args[0])
	if err != nil {
		exitWithError(ExitError, "getting author: %v", err)
	}
	if a == nil {
		exitWithError(ExitError, "author not found: %s", args[0])
	}

	if humanOutput {
		fmt.Println(a.Slug)
		fmt.Println(strings.Repeat("═", 70))
		fmt.Println()
		name := a.Family
		if a.Given != "" {
			name = a.Given + " " + a.Family
		}
		fmt.Printf("Name:     %s\n", name)
		if len(a.Variants) > 0 {
			fmt.Printf("Variants: %s\n", wrapText(strings.Join(a.Variants, ", "), TextWrapWidth, "          "))
		}
		if len(a.Papers) > 0 {
			fmt.Println()
			fmt.Printf("%d papers:\n", len(a.Papers))
			for _, key := range a.Papers {
				fmt.Printf("  %s\n", key)
			}
		}
	} else {
		outputJSON(a)
	}
	return nil
}
