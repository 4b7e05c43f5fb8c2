package main

import (
	"github.com/spf13/cobra"

	"github.com/mlanthology/anthology/internal/catalog"
)

var getByDOI bool

func init() {
	getCmd.Flags().BoolVar(&getByDOI, "doi", false, "Look up by DOI instead of citation key")
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a single paper by citation key",
	Long: `Get a single paper by its citation key, or by DOI with --doi.

Examples:
  mla get vaswani2017neurips-attention
  mla get --doi 10.5555/3295222.3295349`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	db := mustOpenDatabase(repoRoot)
	defer db.Close()

	var p *catalog.Paper
	var err error
	if getByDOI {
		p, err = db.GetByDOI(args[0])
	} else {
		p, err = db.GetByKey(args[0])
	}
	if err != nil {
		exitWithError(ExitError, "getting paper: %v", err)
	}
	if p == nil {
		exitWithError(ExitError, "paper not found: %s", args[0])
	}

	if humanOutput {
		printPaperDetail(p)
	} else {
		outputJSON(p)
	}
	return nil
}
