package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mlanthology/anthology/internal/pipeline"
)

var (
	buildDryRun     bool
	buildRecoverPDF bool
	buildThreshold  float64
	buildWorkers    int
)

func init() {
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Resolve and report without writing anything")
	buildCmd.Flags().BoolVar(&buildRecoverPDF, "recover-pdf", false, "Recover missing DOIs from downloaded PDFs")
	buildCmd.Flags().Float64Var(&buildThreshold, "threshold", 0, "Fuzzy title match cutoff (0 = configured default)")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "File-level parallelism (0 = number of CPUs)")
	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Aggregate source data into the canonical catalog",
	Long: `Read adapter output under data/, resolve paper and author
identities against the current snapshot, assign citation keys, and
write the updated snapshot plus the SQLite index.

Citation keys and author slugs from the existing snapshot are
permanent: a rebuilt paper keeps the key it was first published under.

Examples:
  mla build
  mla build --dry-run
  mla build --recover-pdf --threshold 0.85`,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	if buildThreshold > 0 {
		cfg.TitleThreshold = buildThreshold
	}

	log := newLogger()
	cat, report, err := pipeline.Run(cmd.Context(), pipeline.Options{
		Root:       repoRoot,
		Config:     cfg,
		Logger:     log,
		RecoverPDF: buildRecoverPDF,
		Workers:    buildWorkers,
	})
	if err != nil {
		exitWithError(ExitDataError, "build failed: %v", err)
	}

	if !buildDryRun {
		if err := pipeline.Commit(repoRoot, cat, log); err != nil {
			exitWithError(ExitError, "committing catalog: %v", err)
		}
	}

	if humanOutput {
		status := "committed"
		if buildDryRun {
			status = "dry run, nothing written"
		}
		fmt.Printf("%d records from %d files -> %d papers, %d authors (%s)\n",
			report.Records, report.Files, report.Papers, report.Authors, status)
		if report.Skipped > 0 || report.ReadErrors > 0 {
			fmt.Printf("skipped %d records, %d read errors\n", report.Skipped, report.ReadErrors)
		}
		if report.Retired > 0 {
			fmt.Printf("carried forward %d papers no longer in the input\n", report.Retired)
		}
		flags := make([]string, 0, len(report.Flagged))
		for flag := range report.Flagged {
			flags = append(flags, flag)
		}
		sort.Strings(flags)
		for _, flag := range flags {
			fmt.Printf("  %d records flagged %s\n", report.Flagged[flag], flag)
		}
		for _, w := range report.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	} else {
		outputJSON(report)
	}

	return nil
}
