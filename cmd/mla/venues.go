package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlanthology/anthology/internal/config"
	"github.com/mlanthology/anthology/internal/normalize"
)

func init() {
	rootCmd.AddCommand(venuesCmd)
}

var venuesCmd = &cobra.Command{
	Use:   "venues [name]",
	Short: "Show the venue table, or resolve one venue name",
	Long: `With no argument, list every known venue slug. With an argument,
resolve a raw venue string the way the build pipeline would.

Examples:
  mla venues
  mla venues "Proceedings of the 38th International Conference on Machine Learning"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVenues,
}

// VenueInfo is one venue in the venues listing.
type VenueInfo struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// VenueResolution is the response when resolving a single name.
type VenueResolution struct {
	Input string `json:"input"`
	Slug  string `json:"slug"`
	Known bool   `json:"known"`
}

func runVenues(cmd *cobra.Command, args []string) error {
	venues := loadVenueTable()

	if len(args) == 1 {
		slug, known := venues.Resolve(args[0])
		if humanOutput {
			if known {
				fmt.Printf("%s -> %s (%s)\n", args[0], slug, venues.Name(slug))
			} else {
				fmt.Printf("%s -> %s (unknown venue)\n", args[0], slug)
			}
		} else {
			outputJSON(VenueResolution{Input: args[0], Slug: slug, Known: known})
		}
		return nil
	}

	var infos []VenueInfo
	for _, slug := range venues.Slugs() {
		infos = append(infos, VenueInfo{Slug: slug, Name: venues.Name(slug), Type: venues.Type(slug)})
	}

	if humanOutput {
		for _, v := range infos {
			fmt.Printf("  %-12s %-10s %s\n", v.Slug, v.Type, v.Name)
		}
	} else {
		outputJSON(infos)
	}
	return nil
}

// loadVenueTable loads the repository venue overlay when run inside a
// repository, the built-in table otherwise.
func loadVenueTable() *normalize.VenueTable {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		return normalize.DefaultVenues()
	}
	repoRoot, err := config.FindRepository(start)
	if err != nil {
		return normalize.DefaultVenues()
	}
	cfg := mustLoadConfig(repoRoot)
	venues, err := normalize.LoadVenues(cfg.VenuesPath(repoRoot))
	if err != nil {
		exitWithError(ExitConfigError, "loading venue table: %v", err)
	}
	return venues
}
