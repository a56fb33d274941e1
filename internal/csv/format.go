package csv

import "strings"

// FormatLine joins values into a line that ParseLine reads back unchanged.
// Values containing a comma or a quote are wrapped in quotes with inner
// quotes doubled.
func FormatLine(values []string) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		if strings.ContainsAny(v, `,"`) {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(v, `"`, `""`))
			b.WriteByte('"')
			continue
		}
		b.WriteString(v)
	}
	return b.String()
}

// FormatRow serializes a row in header order.
func FormatRow(header []string, row Row) string {
	return FormatLine(row.Values(header))
}
