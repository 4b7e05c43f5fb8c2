package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlanthology/anthology/internal/catalog"
	"github.com/mlanthology/anthology/internal/config"
	"github.com/mlanthology/anthology/internal/normalize"
	"github.com/mlanthology/anthology/internal/snapshot"
	"github.com/mlanthology/anthology/internal/validate"
)

var validateSeverity string

func init() {
	validateCmd.Flags().StringVar(&validateSeverity, "severity", "", "Only show findings at this severity (error, warn, info)")
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalog for data quality problems",
	Long: `Run data quality checks over the committed snapshot: malformed
citation keys, mojibake, HTML fragments, implausible years, unknown
venues, duplicate titles, and more.

Exit code is 4 when any error-severity finding exists, 0 otherwise.

Examples:
  mla validate
  mla validate --severity error`,
	RunE: runValidate,
}

// ValidateResult is the JSON response for the validate command.
type ValidateResult struct {
	Errors   int                `json:"errors"`
	Warnings int                `json:"warnings"`
	Infos    int                `json:"infos"`
	Findings []validate.Finding `json:"findings"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	snap, err := snapshot.Load(config.AnthologyPath(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "loading snapshot: %v", err)
	}
	cat, err := catalog.Assemble(snap.Papers, snap.Authors)
	if err != nil {
		exitWithError(ExitDataError, "assembling catalog: %v", err)
	}

	venues, err := normalize.LoadVenues(cfg.VenuesPath(repoRoot))
	if err != nil {
		exitWithError(ExitConfigError, "loading venue table: %v", err)
	}

	findings := validate.Run(cat, venues)
	if validateSeverity != "" {
		var filtered []validate.Finding
		for _, f := range findings {
			if strings.EqualFold(f.Severity, validateSeverity) {
				filtered = append(filtered, f)
			}
		}
		findings = filtered
	}
	errors, warnings, infos := validate.Summary(findings)

	if humanOutput {
		for _, f := range findings {
			fmt.Println(f)
		}
		fmt.Printf("\n%d papers checked: %d errors, %d warnings, %d infos\n",
			len(cat.Papers), errors, warnings, infos)
	} else {
		if findings == nil {
			findings = []validate.Finding{}
		}
		outputJSON(ValidateResult{Errors: errors, Warnings: warnings, Infos: infos, Findings: findings})
	}

	if errors > 0 {
		os.Exit(ExitValidation)
	}
	return nil
}
