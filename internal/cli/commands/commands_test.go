package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvdatasets/internal/csv"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewCommands(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewParseCommand(), "parse <file>", []string{"preview", "json"}},
		{NewIngestCommand(), "ingest <file>", []string{"name", "owner"}},
		{NewDatasetsCommand(), "datasets", []string{"owner", "json"}},
		{NewVersionCommand(), "version", nil},
	}

	for _, tt := range tests {
		if tt.cmd.Use != tt.use {
			t.Errorf("Unexpected Use: %s", tt.cmd.Use)
		}
		for _, flag := range tt.flags {
			if tt.cmd.Flags().Lookup(flag) == nil {
				t.Errorf("%s: missing flag %s", tt.use, flag)
			}
		}
	}
}

func TestParseCommand_Text(t *testing.T) {
	path := writeCSV(t, "name,note\nann,\"hi, there\"\n,skipped\nbob\n")

	out, err := execute(t, NewParseCommand(), path)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	for _, want := range []string{
		"Columns: name, note",
		"Rows:    2",
		"Dropped: 1",
		`ann,"hi, there"`,
		"bob,",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseCommand_JSON(t *testing.T) {
	path := writeCSV(t, "\ufeffid,v\n1,a\n2,b\n3,c\n")

	out, err := execute(t, NewParseCommand(), path, "--json", "--preview", "2")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var report ParseReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if strings.Join(report.Columns, ",") != "id,v" {
		t.Errorf("columns = %v (BOM not stripped?)", report.Columns)
	}
	if report.RowCount != 3 || report.Dropped != 0 {
		t.Errorf("rowCount/dropped = %d/%d", report.RowCount, report.Dropped)
	}
	if len(report.Preview) != 2 || report.Preview[1].Number != 2 || report.Preview[1].Fields["v"] != "b" {
		t.Errorf("preview = %+v", report.Preview)
	}
}

func TestParseCommand_Errors(t *testing.T) {
	_, err := execute(t, NewParseCommand(), filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want ErrNotExist", err)
	}

	_, err = execute(t, NewParseCommand(), writeCSV(t, "\n  \n"))
	if !errors.Is(err, csv.ErrEmptyInput) {
		t.Errorf("blank file error = %v, want ErrEmptyInput", err)
	}
}

func TestParseFile_PreviewBounds(t *testing.T) {
	path := writeCSV(t, "a\n1\n2\n")

	tests := []struct {
		preview int
		want    int
	}{
		{0, 0},
		{-1, 0},
		{1, 1},
		{10, 2},
	}
	for _, tt := range tests {
		report, err := parseFile(path, tt.preview)
		if err != nil {
			t.Fatalf("parseFile() error = %v", err)
		}
		if len(report.Preview) != tt.want {
			t.Errorf("preview %d: got %d rows, want %d", tt.preview, len(report.Preview), tt.want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, NewVersionCommand())
	if err != nil {
		t.Fatal(err)
	}
	if out != "csvingest dev\n" {
		t.Errorf("output = %q", out)
	}
}
