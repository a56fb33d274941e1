package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvdatasets/internal/csv"
)

// ParseReport is the JSON output of the parse command.
type ParseReport struct {
	File     string    `json:"file"`
	Columns  []string  `json:"columns"`
	RowCount int       `json:"rowCount"`
	Dropped  int       `json:"dropped"`
	Preview  []csv.Row `json:"preview,omitempty"`
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	var (
		preview int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Show how a local CSV file parses",
		Long: `Parse a local CSV file exactly as ingestion would, without storing anything.

Reports:
  - The header columns
  - How many data rows are kept
  - How many lines were dropped for having fewer fields than the header`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := parseFile(args[0], preview)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().IntVarP(&preview, "preview", "n", 5, "number of rows to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func parseFile(path string, preview int) (*ParseReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text, err := csv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table, err := csv.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &ParseReport{
		File:     path,
		Columns:  table.Header,
		RowCount: len(table.Rows),
		Dropped:  table.Dropped,
		Preview:  table.Rows[:min(max(preview, 0), len(table.Rows))],
	}, nil
}

func printReport(cmd *cobra.Command, r *ParseReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:    %s\n", r.File)
	fmt.Fprintf(out, "Columns: %s\n", strings.Join(r.Columns, ", "))
	fmt.Fprintf(out, "Rows:    %d\n", r.RowCount)
	fmt.Fprintf(out, "Dropped: %d\n", r.Dropped)

	if len(r.Preview) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s\n", csv.FormatLine(r.Columns))
	for _, row := range r.Preview {
		fmt.Fprintln(out, csv.FormatRow(r.Columns, row))
	}
}
