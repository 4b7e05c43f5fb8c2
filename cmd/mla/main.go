// Package main provides the mla CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mlanthology/anthology/internal/config"
	"github.com/mlanthology/anthology/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// verbose raises the log level from warn to debug
var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mla",
	Short: "Machine learning anthology builder",
	Long: `mla aggregates paper metadata from multiple scholarly sources
(DBLP, OpenReview, PMLR, NeurIPS, CVF, Semantic Scholar, OpenAlex)
into one canonical catalog with permanent citation keys and author
slugs.

The catalog lives in git-versionable JSONL under .anthology/, with an
ephemeral SQLite index for queries. All commands output JSON by
default for easy integration with other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env if present (for ANTHOLOGY_ROOT)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Version = Version
}

// newLogger builds the CLI logger. Progress goes to stderr so stdout
// stays parseable JSON.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// getStartingDirectory returns the directory to start repository
// discovery from.
func getStartingDirectory() (string, int) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindRepository finds and validates the repository, exits on error.
func mustFindRepository() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	repoRoot, err := config.FindRepository(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return repoRoot
}

// mustLoadConfig loads repository configuration, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenDatabase opens the SQLite index, rebuilding it first when the
// snapshot has changed underneath it. The caller must Close the result.
func mustOpenDatabase(repoRoot string) *storage.DB {
	if err := os.MkdirAll(config.CachePath(repoRoot), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.Open(config.DBPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "opening index: %v", err)
	}

	snapDir := config.AnthologyPath(repoRoot)
	stale, err := db.Stale(snapDir)
	if err != nil {
		db.Close()
		exitWithError(ExitError, "checking index freshness: %v", err)
	}
	if stale {
		if _, err := db.Rebuild(snapDir); err != nil {
			db.Close()
			exitWithError(ExitDataError, "rebuilding index: %v", err)
		}
	}
	return db
}
