package parser

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"logsight-backend/internal/model"
)

// Leading dotted quad. Octet ranges are deliberately not validated; anything
// shaped like an IPv4 address at the start of the line counts as an access log.
var httpPrefixRegex = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// Detect inspects the first non-empty line of an upload and picks the grammar
// for the whole file.
func Detect(firstLine string) model.LogType {
	if strings.Contains(firstLine, "sshd") || strings.Contains(firstLine, "pam_unix") {
		return model.LogTypeSSH
	}
	if httpPrefixRegex.MatchString(firstLine) {
		return model.LogTypeHTTP
	}
	log.Debug().Str("line", firstLine).Msg("First line matched no known log grammar")
	return model.LogTypeUnknown
}
