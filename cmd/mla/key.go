package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlanthology/anthology/internal/authorname"
	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/citekey"
	"github.com/mlanthology/anthology/internal/normalize"
)

var (
	keyAuthor string
	keyYear   int
	keyVenue  string
)

func init() {
	keyCmd.Flags().StringVar(&keyAuthor, "author", "", "First author name (required)")
	keyCmd.Flags().IntVar(&keyYear, "year", 0, "Publication year (required)")
	keyCmd.Flags().StringVar(&keyVenue, "venue", "", "Venue name or slug (required)")
	keyCmd.MarkFlagRequired("author")
	keyCmd.MarkFlagRequired("year")
	keyCmd.MarkFlagRequired("venue")
	rootCmd.AddCommand(keyCmd)
}

var keyCmd = &cobra.Command{
	Use:   "key <title...>",
	Short: "Compute the citation key base for paper metadata",
	Long: `Compute the citation key a paper with the given metadata would
receive, before any collision suffix.

This needs no repository: the computation is a pure function of first
author, year, venue, and title.

Example:
  mla key --author "Ashish Vaswani" --year 2017 --venue NeurIPS Attention Is All You Need`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKey,
}

// KeyResult is the JSON response for the key command.
type KeyResult struct {
	Key   string `json:"key"`
	Venue string `json:"venue"`
	Word  string `json:"word"`
}

func runKey(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")
	venues := normalize.DefaultVenues()
	slug, _ := venues.Resolve(keyVenue)

	name := authorname.Parse(keyAuthor)
	p := &catalog.Paper{
		Title: title,
		Year:  keyYear,
		Venue: slug,
		Authors: []catalog.Credit{
			{Given: name.Given, Family: name.Family},
		},
	}

	base := citekey.Base(p)
	if humanOutput {
		fmt.Println(base)
	} else {
		outputJSON(KeyResult{Key: base, Venue: slug, Word: citekey.FirstContentWord(title)})
	}
	return nil
}
