package csv

import "errors"

// ErrEmptyInput is returned by Parse when the text has no non-blank line.
var ErrEmptyInput = errors.New("empty file: no header line found")

// Table is a parsed CSV document.
type Table struct {
	Header []string
	Rows   []Row

	// Dropped counts data lines rejected by the row policy.
	Dropped int
}

// Parse splits text into lines, parses the first line as the header and
// assembles every following line into a row.
func Parse(text string) (*Table, error) {
	var (
		t   *Table
		asm *Assembler
	)

	for line := range Lines(text) {
		if t == nil {
			t = &Table{Header: ParseHeader(line)}
			asm = NewAssembler(t.Header)
			continue
		}

		row, ok := asm.Assemble(ParseLine(line))
		if !ok {
			t.Dropped++
			continue
		}
		t.Rows = append(t.Rows, row)
	}

	if t == nil {
		return nil, ErrEmptyInput
	}
	return t, nil
}
