package codec

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/reedcms/reed/internal/corerr"
)

// ScalarHeader is the canonical header row emitted for every scalar .reed
// file (text.csv, routes.csv, meta.csv, project.csv, server.csv).
var ScalarHeader = []string{"key", "value", "description"}

// ParseScalarFile reads a pipe-delimited scalar file: comment/blank lines
// are skipped, the first remaining line is the header, and every
// subsequent line must split into exactly the header's arity (spec.md
// §4.1, "Scalar parse").
func ParseScalarFile(r io.Reader) ([]ScalarRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var header []string
	var records []ScalarRecord
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
			return nil, &corerr.ParseError{
				Line:   lineNo,
				Input:  line,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(fields)),
			}
		}

		records = append(records, scalarRecordFromFields(header, fields))
	}
	if err := scanner.Err(); err != nil {
		return nil, &corerr.IoError{Operation: "read", Reason: err.Error()}
	}

	return records, nil
}

func scalarRecordFromFields(header, fields []string) ScalarRecord {
	var rec ScalarRecord
	for i, name := range header {
		value := fields[i]
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "key":
			rec.Key = value
		case "value":
			rec.Value = value
		case "description":
			rec.Description = value
		default:
			switch i {
			case 0:
				rec.Key = value
			case 1:
				rec.Value = value
			case 2:
				rec.Description = value
			}
		}
	}
	return rec
}

// EmitScalarFile serialises records back into the pipe-delimited scalar
// format, inverse of ParseScalarFile (spec.md §8 property 1).
func EmitScalarFile(records []ScalarRecord) []byte {
	var sb strings.Builder
	sb.WriteString(joinEscaped(ScalarHeader))
	sb.WriteByte('\n')
	for _, rec := range records {
		sb.WriteString(joinEscaped([]string{rec.Key, rec.Value, rec.Description}))
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}
