package csv

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_BlankLineTolerance(t *testing.T) {
	table, err := Parse("h1,h2\n\n1,2\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if want := []string{"h1", "h2"}; !reflect.DeepEqual(table.Header, want) {
		t.Errorf("Header = %q, want %q", table.Header, want)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("len(Rows) = %d, want 1", len(table.Rows))
	}

	row := table.Rows[0]
	if row.Number != 1 {
		t.Errorf("Number = %d, want 1", row.Number)
	}
	if want := map[string]string{"h1": "1", "h2": "2"}; !reflect.DeepEqual(row.Fields, want) {
		t.Errorf("Fields = %v, want %v", row.Fields, want)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	inputs := []string{
		"",
		"\n",
		"   \n\t\n  ",
		"\r\n\r\n",
	}

	for _, in := range inputs {
		_, err := Parse(in)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Parse(%q) error = %v, want ErrEmptyInput", in, err)
		}
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	table, err := Parse("a,b\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("len(Rows) = %d, want 0", len(table.Rows))
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(table.Header, want) {
		t.Errorf("Header = %q, want %q", table.Header, want)
	}
}

func TestParse_LenientRows(t *testing.T) {
	text := "a,b,c\n" +
		"1\n" + // short: padded
		"1,2,3,4\n" + // long: truncated
		",x,y\n" + // empty first value: dropped
		"5,6,7\n"

	table, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []Row{
		{Number: 1, Fields: map[string]string{"a": "1", "b": "", "c": ""}},
		{Number: 2, Fields: map[string]string{"a": "1", "b": "2", "c": "3"}},
		{Number: 3, Fields: map[string]string{"a": "5", "b": "6", "c": "7"}},
	}
	if !reflect.DeepEqual(table.Rows, want) {
		t.Errorf("Rows = %+v, want %+v", table.Rows, want)
	}
	if table.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", table.Dropped)
	}
}

func TestParse_RowNumbersContiguous(t *testing.T) {
	text := "id\n1\n,\n2\n\n3\n,skip\n4\n"

	table, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	for i, row := range table.Rows {
		if row.Number != i+1 {
			t.Errorf("Rows[%d].Number = %d, want %d", i, row.Number, i+1)
		}
	}
	if len(table.Rows) != 4 {
		t.Errorf("len(Rows) = %d, want 4", len(table.Rows))
	}
}

func TestParse_DuplicateHeaderLastWins(t *testing.T) {
	table, err := Parse("id,name,name\n1,first,second\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if want := []string{"id", "name", "name"}; !reflect.DeepEqual(table.Header, want) {
		t.Errorf("Header = %q, want %q", table.Header, want)
	}

	got, ok := table.Rows[0].Get("name")
	if !ok || got != "second" {
		t.Errorf("Get(name) = %q, %v, want %q, true", got, ok, "second")
	}
}

func TestParse_QuotedHeaderAndValues(t *testing.T) {
	text := `"id","full name","note"` + "\n" +
		`1,"Doe, Jane","said ""hi"""` + "\n"

	table, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if want := []string{"id", "full name", "note"}; !reflect.DeepEqual(table.Header, want) {
		t.Errorf("Header = %q, want %q", table.Header, want)
	}
	want := map[string]string{"id": "1", "full name": "Doe, Jane", "note": `said "hi"`}
	if !reflect.DeepEqual(table.Rows[0].Fields, want) {
		t.Errorf("Fields = %v, want %v", table.Rows[0].Fields, want)
	}
}

func TestAssembler_Accepted(t *testing.T) {
	asm := NewAssembler([]string{"a"})

	asm.Assemble([]string{"1"})
	asm.Assemble([]string{""})
	asm.Assemble([]string{"2"})

	if got := asm.Accepted(); got != 2 {
		t.Errorf("Accepted() = %d, want 2", got)
	}
}

func TestRow_Values(t *testing.T) {
	row := Row{Number: 1, Fields: map[string]string{"a": "1", "b": "2"}}

	got := row.Values([]string{"b", "missing", "a"})
	if want := []string{"2", "", "1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %q, want %q", got, want)
	}
}
