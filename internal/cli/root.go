// Package cli provides the csvingest command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvdatasets/internal/cli/commands"
	"github.com/JonMunkholm/csvdatasets/internal/config"
)

// envFlags maps persistent flags to the environment variables the config
// loader reads, so a flag wins over both the environment and CONFIG_FILE.
var envFlags = map[string]string{
	"config":     config.FileEnv,
	"db-kind":    "DB_KIND",
	"db-url":     "DATABASE_URL",
	"files-root": "FILES_ROOT",
	"log-level":  "LOG_LEVEL",
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "csvingest",
		Short: "Parse CSV files and load them as datasets",
		Long: `csvingest runs the dataset ingestion pipeline from the command line.

It can:
  - Report how a local CSV file parses (header, rows, dropped lines)
  - Ingest a local file into the configured dataset store
  - List the datasets an owner has

Configuration comes from the same environment variables and CONFIG_FILE
as the server; the flags below override them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: applyEnvFlags,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML config file (CONFIG_FILE)")
	flags.String("db-kind", "", "dataset store: postgres, sqlite or memory (DB_KIND)")
	flags.String("db-url", "", "dataset store DSN (DATABASE_URL)")
	flags.String("files-root", "", "file store directory (FILES_ROOT)")
	flags.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")

	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewIngestCommand())
	rootCmd.AddCommand(commands.NewDatasetsCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

func applyEnvFlags(cmd *cobra.Command, _ []string) error {
	for flag, env := range envFlags {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := os.Setenv(env, f.Value.String()); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
	}
	return nil
}
