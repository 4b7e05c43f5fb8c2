package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mlanthology/anthology/internal/config"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize an anthology repository",
	Long: `Create the .anthology directory with a default configuration in
the given path, or the current directory.

Example:
  mla init ~/anthology`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = config.ExpandPath(args[0])
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		exitWithError(ExitError, "resolving path: %v", err)
	}

	if config.IsRepository(abs) {
		exitWithError(ExitError, "already an anthology repository: %s", abs)
	}

	if err := (&config.Config{}).Save(abs); err != nil {
		exitWithError(ExitError, "initializing repository: %v", err)
	}
	cfg, err := config.Load(abs)
	if err != nil {
		exitWithError(ExitError, "loading config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataPath(abs), 0755); err != nil {
		exitWithError(ExitError, "creating data directory: %v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized anthology repository in %s\n", config.AnthologyPath(abs))
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: config.AnthologyPath(abs)})
	}
	return nil
}
