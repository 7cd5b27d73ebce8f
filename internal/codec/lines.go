package codec

import "strings"

// splitEscaped splits a line on '|', treating a literal "\|" as an escaped
// delimiter rather than a field boundary (spec.md §4.1).
func splitEscaped(line string) []string {
	var fields []string
	var cur strings.Builder

	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && line[i+1] == '|' {
			cur.WriteByte('|')
			i++
			continue
		}
		if c == '|' {
			fields = append(fields, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	fields = append(fields, cur.String())
	return fields
}

// joinEscaped is the inverse of splitEscaped: it escapes any literal '|'
// within a field before joining fields with unescaped '|' delimiters.
func joinEscaped(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = strings.ReplaceAll(f, "|", `\|`)
	}
	return strings.Join(escaped, "|")
}
