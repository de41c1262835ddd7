package parser

import (
	"regexp"

	"github.com/rs/zerolog/log"

	"logsight-backend/internal/model"
)

type httpLineParser struct {
	regex *regexp.Regexp
}

// NewHTTPLineParser builds the parser for Apache common log format lines.
// Groups: 1:ip, 2:ident, 3:timestamp, 4:request, 5:status, 6:size
func NewHTTPLineParser() LineParser {
	return &httpLineParser{
		regex: regexp.MustCompile(`^(\S+) - (\S+) \[([^\]]*)\] "([^"]*)" (\d+) (\d+)`),
	}
}

func (p *httpLineParser) Parse(line string) *model.Record {
	matches := p.regex.FindStringSubmatch(line)
	if matches == nil {
		log.Debug().Str("line", line).Msg("HTTP line did not match common log format")
		return nil
	}
	return model.NewRecord().
		Set(FieldSrcIP, matches[1]).
		Set("ident", matches[2]).
		Set("timestamp", matches[3]).
		Set("request", matches[4]).
		Set("status_code", matches[5]).
		Set("size", matches[6])
}
