package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlanthology/anthology/internal/resolve"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective repository configuration",
	RunE:  runConfig,
}

// ConfigResult is the JSON response for the config command.
type ConfigResult struct {
	Root           string  `json:"root"`
	DataDir        string  `json:"data_dir"`
	VenuesFile     string  `json:"venues_file"`
	PDFRoot        string  `json:"pdf_root,omitempty"`
	TitleThreshold float64 `json:"title_threshold"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	threshold := cfg.TitleThreshold
	if threshold == 0 {
		threshold = resolve.DefaultTitleThreshold
	}

	result := ConfigResult{
		Root:           repoRoot,
		DataDir:        cfg.DataPath(repoRoot),
		VenuesFile:     cfg.VenuesPath(repoRoot),
		PDFRoot:        cfg.PDFRoot,
		TitleThreshold: threshold,
	}

	if humanOutput {
		fmt.Printf("Root:            %s\n", result.Root)
		fmt.Printf("Data dir:        %s\n", result.DataDir)
		fmt.Printf("Venues file:     %s\n", result.VenuesFile)
		if result.PDFRoot != "" {
			fmt.Printf("PDF root:        %s\n", result.PDFRoot)
		}
		fmt.Printf("Title threshold: %.2f\n", result.TitleThreshold)
	} else {
		outputJSON(result)
	}
	return nil
}
