package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvdatasets/internal/app"
	"github.com/JonMunkholm/csvdatasets/internal/auth"
	"github.com/JonMunkholm/csvdatasets/internal/config"
	"github.com/JonMunkholm/csvdatasets/internal/core"
	"github.com/JonMunkholm/csvdatasets/internal/logging"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	var name, owner string

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload a local CSV file and create a dataset from it",
		Long: `Copy a local CSV file into the file store under the owner's prefix, then
run the full ingestion pipeline against the configured dataset store.

The dataset name defaults to the file name without its extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			return runIngest(cmd, args[0], name, owner)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "dataset name")
	cmd.Flags().StringVar(&owner, "owner", "", "user id that owns the dataset (required)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func runIngest(cmd *cobra.Command, path, name, owner string) error {
	ctx := commandContext(cmd)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	id := auth.Identity{UserID: owner}
	stored, err := a.Service.SaveUpload(ctx, id, filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("upload: %s", core.FormatUserError(err))
	}

	result, err := a.Service.Ingest(ctx, id, name, stored)
	if err != nil {
		slog.Debug("ingest error", "error", err)
		return fmt.Errorf("ingest: %s", core.FormatUserError(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dataset %s created\n", result.DatasetID)
	fmt.Fprintf(out, "  Name:    %s\n", result.Name)
	fmt.Fprintf(out, "  File:    %s\n", stored)
	fmt.Fprintf(out, "  Columns: %s\n", strings.Join(result.Columns, ", "))
	fmt.Fprintf(out, "  Rows:    %d (%d dropped, %d batches)\n", result.RowCount, result.Dropped, result.Batches)
	return nil
}

// openApp loads configuration and assembles the service. Logs go to
// stderr so they never mix with command output.
func openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))
	return app.Open(ctx, cfg)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
