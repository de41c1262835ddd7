package model

import "fmt"

// LogType identifies which line grammar applies to an uploaded file.
// It is detected once per run from the first non-empty line.
type LogType int

const (
	LogTypeUnknown LogType = iota
	LogTypeSSH
	LogTypeHTTP
)

func (t LogType) String() string {
	switch t {
	case LogTypeSSH:
		return "ssh"
	case LogTypeHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// OutputEncoding selects how merged records are rendered.
type OutputEncoding int

const (
	EncodingKeyValue OutputEncoding = iota
	EncodingJSON
)

func (e OutputEncoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	default:
		return "keyvalue"
	}
}

// Extension returns the suggested filename extension for the encoding.
func (e OutputEncoding) Extension() string {
	if e == EncodingJSON {
		return ".json"
	}
	return ".txt"
}

// ContentType returns the MIME type for HTTP responses carrying a document
// in this encoding.
func (e OutputEncoding) ContentType() string {
	if e == EncodingJSON {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// ParseEncoding maps a caller-supplied format name to an OutputEncoding.
func ParseEncoding(name string) (OutputEncoding, error) {
	switch name {
	case "keyvalue", "txt", "":
		return EncodingKeyValue, nil
	case "json":
		return EncodingJSON, nil
	default:
		return EncodingKeyValue, fmt.Errorf("unsupported output format: %s", name)
	}
}
