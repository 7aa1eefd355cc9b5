package llsd

import (
	"path/filepath"
	"strings"
)

// Format identifies LLSD serialization formats.
type Format string

const (
	FormatXML      Format = "xml"
	FormatNotation Format = "notation"
	FormatBinary   Format = "binary"
	FormatJSON     Format = "json"
)

// ParseFormat normalizes a format string.
func ParseFormat(value string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "xml", "llsd+xml":
		return FormatXML, true
	case "notation", "llsd+notation":
		return FormatNotation, true
	case "binary", "llsd+binary":
		return FormatBinary, true
	case "json", "llsd+json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// FormatFromContentType infers the format from a MIME content type.
func FormatFromContentType(contentType string) (Format, bool) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "application/llsd+xml", "application/xml", "text/xml":
		return FormatXML, true
	case "application/llsd+notation":
		return FormatNotation, true
	case "application/llsd+binary", "application/octet-stream":
		return FormatBinary, true
	case "application/llsd+json", "application/json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// FormatFromPath infers the format from a filename extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".llsd", ".xml":
		return FormatXML, true
	case ".notation", ".txt":
		return FormatNotation, true
	case ".bin":
		return FormatBinary, true
	case ".json":
		return FormatJSON, true
	default:
		return "", false
	}
}
