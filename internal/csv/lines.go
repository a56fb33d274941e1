package csv

import (
	"iter"
	"strings"
)

// Lines returns the logical lines of text.
//
// The text is split on '\n'. Lines that are empty or whitespace-only are
// skipped and do not reserve a position, so the first yielded line is the
// header. The sequence is lazy and may be ranged over more than once.
func Lines(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for line := range strings.SplitSeq(text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}
