// Package formatter renders merged records into one of the supported output
// encodings. Records render one per line, in the order given.
package formatter

import (
	"fmt"
	"strings"

	"logsight-backend/internal/model"
)

type Formatter interface {
	Format(records []*model.Record) ([]byte, error)
}

// ForEncoding returns the formatter for a selected output encoding.
func ForEncoding(encoding model.OutputEncoding) (Formatter, error) {
	switch encoding {
	case model.EncodingKeyValue:
		return &keyValueFormatter{}, nil
	case model.EncodingJSON:
		return &jsonFormatter{}, nil
	default:
		return nil, fmt.Errorf("no formatter for encoding %q", encoding)
	}
}

// keyValueFormatter renders `key="value"` pairs joined by ", ". Embedded
// double quotes are escaped with a backslash; nothing else is escaped.
type keyValueFormatter struct{}

func (f *keyValueFormatter) Format(records []*model.Record) ([]byte, error) {
	var doc strings.Builder
	for i, record := range records {
		if i > 0 {
			doc.WriteByte('\n')
		}
		for j, field := range record.Fields() {
			if j > 0 {
				doc.WriteString(", ")
			}
			doc.WriteString(field.Key)
			doc.WriteString(`="`)
			doc.WriteString(strings.ReplaceAll(field.Value, `"`, `\"`))
			doc.WriteString(`"`)
		}
	}
	return []byte(doc.String()), nil
}

// jsonFormatter renders one JSON object per line, member order matching the
// record's field order.
type jsonFormatter struct{}

func (f *jsonFormatter) Format(records []*model.Record) ([]byte, error) {
	var doc strings.Builder
	for i, record := range records {
		if i > 0 {
			doc.WriteByte('\n')
		}
		line, err := record.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
		doc.Write(line)
	}
	return []byte(doc.String()), nil
}
