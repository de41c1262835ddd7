// Package parser turns raw log lines of a detected grammar into structured
// records. Each grammar is an ordered list of sub-patterns evaluated with
// first-match-wins semantics.
package parser

import (
	"fmt"

	"logsight-backend/internal/model"
)

// FieldSrcIP is the record field carrying the source address used as the
// enrichment key.
const FieldSrcIP = "src_ip"

// LineParser extracts one structured record from a raw line.
// A nil record means the line matched no sub-pattern and is dropped.
type LineParser interface {
	Parse(line string) *model.Record
}

// ForType returns the line parser for a detected log type.
func ForType(t model.LogType) (LineParser, error) {
	switch t {
	case model.LogTypeSSH:
		return NewSSHLineParser(), nil
	case model.LogTypeHTTP:
		return NewHTTPLineParser(), nil
	default:
		return nil, fmt.Errorf("no line parser for log type %q", t)
	}
}
