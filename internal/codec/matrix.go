package codec

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/reedcms/reed/internal/corerr"
)

// ParseMatrixFile reads a pipe-delimited matrix file. The first
// non-comment, non-blank line is the header; every subsequent line must
// split into exactly that many fields. A header column named
// "description" (case-insensitive) is treated specially and mapped onto
// MatrixRecord.Description rather than MatrixRecord.Fields, everything
// else becomes a MatrixValue via ParseValue (spec.md §4.1, §6).
func ParseMatrixFile(r io.Reader) (header []string, records []MatrixRecord, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		fields := splitEscaped(line)

		if header == nil {
			header = fields
			continue
		}

		if len(fields) != len(header) {
			return nil, nil, &corerr.ParseError{
				Line:   lineNo,
				Input:  line,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(fields)),
			}
		}

		records = append(records, matrixRecordFromFields(header, fields))
	}
	if serr := scanner.Err(); serr != nil {
		return nil, nil, &corerr.IoError{Operation: "read", Reason: serr.Error()}
	}

	return header, records, nil
}

func matrixRecordFromFields(header, fields []string) MatrixRecord {
	rec := MatrixRecord{
		Fields: make(map[string]MatrixValue, len(header)),
	}
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "description") {
			rec.Description = fields[i]
			continue
		}
		rec.Order = append(rec.Order, name)
		rec.Fields[name] = ParseValue(fields[i])
	}
	return rec
}

// EmitMatrixFile serialises records back into the pipe-delimited matrix
// format using the given header (which fixes the on-disk column order),
// inverse of ParseMatrixFile.
func EmitMatrixFile(header []string, records []MatrixRecord) []byte {
	var sb strings.Builder
	sb.WriteString(joinEscaped(header))
	sb.WriteByte('\n')

	for _, rec := range records {
		cells := make([]string, len(header))
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), "description") {
				cells[i] = rec.Description
				continue
			}
			if v, ok := rec.Fields[name]; ok {
				cells[i] = EmitValue(v)
			}
		}
		sb.WriteString(joinEscaped(cells))
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}
