package parser

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"logsight-backend/internal/model"
)

// sshPattern pairs a compiled sub-pattern with the builder producing its
// record. Patterns are tried in registration order; the first match wins and
// later patterns are not evaluated.
type sshPattern struct {
	regex *regexp.Regexp
	build func(line string, matches []string) *model.Record
}

type sshLineParser struct {
	patterns []sshPattern
}

// NewSSHLineParser builds the parser for OpenSSH auth log lines.
func NewSSHLineParser() LineParser {
	return &sshLineParser{
		patterns: []sshPattern{
			{
				regex: regexp.MustCompile(`sshd\[(\d+)\]:.*Accepted password for (\S+) from (\S+)`),
				build: func(_ string, m []string) *model.Record {
					return model.NewRecord().
						Set("sshd_event", "Accepted password").
						Set("pid", m[1]).
						Set("user", m[2]).
						Set(FieldSrcIP, m[3])
				},
			},
			{
				regex: regexp.MustCompile(`sshd\[(\d+)\]:.*Failed password for (?:invalid user )?(\S+) from (\S+)`),
				build: func(line string, m []string) *model.Record {
					user := m[2]
					// The capture strips the "invalid user" marker, so the
					// label is reconstructed textually when the line has it.
					if strings.Contains(line, "invalid user") {
						user = "invalid user " + user
					}
					return model.NewRecord().
						Set("sshd_event", "Failed password").
						Set("pid", m[1]).
						Set("user", user).
						Set(FieldSrcIP, m[3])
				},
			},
			{
				regex: regexp.MustCompile(`pam_unix\(sshd:session\): session opened for user (\S+)`),
				build: func(_ string, m []string) *model.Record {
					return model.NewRecord().
						Set("sshd_event", "session opened").
						Set("user", m[1]).
						Set("service", "sshd")
				},
			},
			{
				regex: regexp.MustCompile(`pam_unix\(sshd:session\): session closed for user (\S+)`),
				build: func(_ string, m []string) *model.Record {
					return model.NewRecord().
						Set("sshd_event", "session closed").
						Set("user", m[1]).
						Set("service", "sshd")
				},
			},
			{
				// Loose fallback for login context lines.
				regex: regexp.MustCompile(`User .* logged in`),
				build: func(_ string, _ []string) *model.Record {
					return model.NewRecord().
						Set("sshd_event", "User login context").
						Set("service", "sshd")
				},
			},
		},
	}
}

func (p *sshLineParser) Parse(line string) *model.Record {
	for _, pattern := range p.patterns {
		matches := pattern.regex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		return pattern.build(line, matches)
	}
	log.Debug().Str("line", line).Msg("SSH line matched no sub-pattern")
	return nil
}
