package csv

import "strings"

// scanState is the quote state of the line scanner.
type scanState int

const (
	unquoted scanState = iota
	quoted
)

// ParseLine splits one logical line into field values.
//
// A '"' outside quotes opens a quoted section and is not emitted. Inside a
// quoted section '""' emits a single '"' and a lone '"' closes the section.
// A ',' outside quotes ends the field; inside quotes it is content. Every
// field is trimmed of surrounding whitespace. A quoted section still open
// at the end of the line is flushed as-is.
//
// The result always has at least one element.
func ParseLine(line string) []string {
	fields := make([]string, 0, strings.Count(line, ",")+1)

	var buf strings.Builder
	state := unquoted

	// '"' and ',' are ASCII, so scanning bytes never splits a rune.
	for i := 0; i < len(line); i++ {
		c := line[i]

		switch state {
		case quoted:
			if c == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					buf.WriteByte('"')
					i++
					continue
				}
				state = unquoted
				continue
			}
			buf.WriteByte(c)

		case unquoted:
			switch c {
			case '"':
				state = quoted
			case ',':
				fields = append(fields, strings.TrimSpace(buf.String()))
				buf.Reset()
			default:
				buf.WriteByte(c)
			}
		}
	}

	return append(fields, strings.TrimSpace(buf.String()))
}

// ParseHeader parses a header line. Any '"' left in a name after parsing
// is removed.
func ParseHeader(line string) []string {
	names := ParseLine(line)
	for i, name := range names {
		names[i] = strings.ReplaceAll(name, `"`, "")
	}
	return names
}
