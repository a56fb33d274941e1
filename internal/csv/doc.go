// Package csv turns uploaded CSV text into a header and keyed rows.
//
// The dialect is fixed: comma separated, double-quote wrapped fields,
// doubled quotes as the escape. Parsing happens in three stages:
//
//  1. [Lines] splits the decoded text on '\n' and skips blank lines.
//  2. [ParseLine] tokenizes one line with a two-state quote scanner.
//  3. [Assembler] maps tokens onto the header and numbers accepted rows.
//
// [Parse] runs all three over a whole document. Rows are accepted under a
// lenient policy: short rows are padded with empty strings, long rows are
// truncated to the header width, and a row whose first value is empty is
// dropped without consuming a row number.
package csv
