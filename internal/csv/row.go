package csv

// Row is one accepted data line.
type Row struct {
	// Number is the 1-based position among accepted rows.
	Number int `json:"row_number"`

	// Fields maps header names to values. When the header repeats a name,
	// the value at the later position wins.
	Fields map[string]string `json:"row_data"`
}

// Get returns the value stored under a header name.
func (r Row) Get(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Values returns the row's values in header order.
func (r Row) Values(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		out[i] = r.Fields[name]
	}
	return out
}

// Assembler maps parsed lines onto a header and numbers the rows it accepts.
// It is not safe for concurrent use.
type Assembler struct {
	header []string
	next   int
}

// NewAssembler returns an Assembler for header.
func NewAssembler(header []string) *Assembler {
	return &Assembler{header: header, next: 1}
}

// Assemble builds a Row from the values of one data line.
//
// Value i is stored under header i. Missing trailing values become "" and
// values past the header width are ignored. A line whose first value is
// empty is rejected (ok is false) and does not consume a row number.
func (a *Assembler) Assemble(values []string) (row Row, ok bool) {
	if len(values) == 0 || values[0] == "" {
		return Row{}, false
	}

	fields := make(map[string]string, len(a.header))
	for i, name := range a.header {
		var v string
		if i < len(values) {
			v = values[i]
		}
		fields[name] = v
	}

	row = Row{Number: a.next, Fields: fields}
	a.next++
	return row, true
}

// Accepted returns how many rows have been accepted so far.
func (a *Assembler) Accepted() int {
	return a.next - 1
}
