package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvdatasets/internal/auth"
)

// NewDatasetsCommand creates the datasets command.
func NewDatasetsCommand() *cobra.Command {
	var (
		owner  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List an owner's datasets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			datasets, err := a.Service.ListDatasets(ctx, auth.Identity{UserID: owner})
			if err != nil {
				return fmt.Errorf("list datasets: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(datasets)
			}

			if len(datasets) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No datasets for %s\n", owner)
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tFILE\tCOLUMNS\tROWS\tCREATED")
			for _, d := range datasets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					d.ID, d.Name, d.Filename, len(d.Columns), d.RowCount, d.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "user id whose datasets to list (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print datasets as JSON")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
