package llsd

import (
	"bufio"
	"bytes"
	"io"
)

// binaryHeader is the literal ASCII header of the binary wire form.
const binaryHeader = "<?llsd/binary?>"

// detectSampleSize is how many leading bytes detection inspects. The
// longest sentinel is the binary header at 15 bytes; 32 leaves headroom
// for leading whitespace.
const detectSampleSize = 32

// DetectFormat inspects a prefix of the input and selects a format.
//
// Binary wins on its literal header; XML on a "<?xml" or "<llsd" prefix;
// Notation when the first non-whitespace byte is one of its value markers.
// Anything else defaults to XML for backward-compatible safety. A leading
// '{' or '[' selects Notation, not JSON: Notation's container grammar
// covers those prefixes, so JSON input must be requested explicitly or
// resolved through a content type.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimLeftFunc(data, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == '\n'
	})
	if len(trimmed) == 0 {
		return FormatXML
	}

	if bytes.HasPrefix(trimmed, []byte(binaryHeader)) {
		return FormatBinary
	}
	if bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<llsd")) {
		return FormatXML
	}

	switch first := trimmed[0]; first {
	case '[', '{', '\'', '"', 'i', 'r', 'u', 's', 'b', 'd', 'l', '!', 't', 'f':
		return FormatNotation
	default:
		if first >= '0' && first <= '9' {
			return FormatNotation
		}
		return FormatXML
	}
}

// DetectFormatReader peeks at a buffered reader without consuming it and
// selects a format, so detection behaves identically for streams and
// in-memory buffers.
func DetectFormatReader(r *bufio.Reader) (Format, error) {
	sample, err := r.Peek(detectSampleSize)
	if err != nil && err != io.EOF {
		return "", err
	}
	return DetectFormat(sample), nil
}
