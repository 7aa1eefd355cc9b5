package llsd

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a programmatic code for error handling across process
// boundaries.
type ErrorCode string

const (
	// ErrCodeMalformedInput indicates a grammar or structural violation.
	ErrCodeMalformedInput ErrorCode = "MALFORMED_INPUT"
	// ErrCodeUnexpectedEOF indicates the input ended mid-value.
	ErrCodeUnexpectedEOF ErrorCode = "UNEXPECTED_EOF"
	// ErrCodeUnsupportedType indicates a runtime value the target format
	// cannot represent.
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"
	// ErrCodeLimitExceeded indicates a depth, collection size or payload
	// length limit was exceeded.
	ErrCodeLimitExceeded ErrorCode = "LIMIT_EXCEEDED"
	// ErrCodeTypeConversion indicates invalid UUID/date/URI/base64 text.
	ErrCodeTypeConversion ErrorCode = "TYPE_CONVERSION"
	// ErrCodeUnsupportedFormat indicates an unknown serialization format.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeParseError indicates a general parse error.
	ErrCodeParseError ErrorCode = "PARSE_ERROR"
)

var (
	// ErrMalformedInput indicates a grammar or structural violation.
	ErrMalformedInput = errors.New("llsd: malformed input")
	// ErrUnexpectedEOF indicates the input ended mid-value.
	ErrUnexpectedEOF = errors.New("llsd: unexpected end of input")
	// ErrUnsupportedType indicates an attempt to serialize a runtime value
	// the target format cannot represent.
	ErrUnsupportedType = errors.New("llsd: unsupported value type")
	// ErrLimitExceeded indicates a configured input limit was exceeded.
	ErrLimitExceeded = errors.New("llsd: input limit exceeded")
	// ErrTypeConversion indicates invalid UUID/date/URI/base64 text.
	ErrTypeConversion = errors.New("llsd: invalid typed text")
	// ErrUnsupportedFormat indicates an unknown serialization format.
	ErrUnsupportedFormat = errors.New("llsd: unsupported format")
)

// Code returns the error code for an error, or empty string for nil.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnexpectedEOF):
		return ErrCodeUnexpectedEOF
	case errors.Is(err, ErrLimitExceeded):
		return ErrCodeLimitExceeded
	case errors.Is(err, ErrUnsupportedType):
		return ErrCodeUnsupportedType
	case errors.Is(err, ErrTypeConversion):
		return ErrCodeTypeConversion
	case errors.Is(err, ErrUnsupportedFormat):
		return ErrCodeUnsupportedFormat
	case errors.Is(err, ErrMalformedInput):
		return ErrCodeMalformedInput
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ErrCodeParseError
	}
	return ErrCodeParseError
}

// ParseError provides structured context for parse failures.
type ParseError struct {
	Format  Format // format being parsed
	Excerpt string // input excerpt around the failure, if available
	Offset  int    // byte offset in input (-1 if unknown)
	Err     error  // underlying error
}

func (e *ParseError) Error() string {
	var msg strings.Builder
	msg.WriteString(string(e.Format))
	if e.Offset >= 0 {
		fmt.Fprintf(&msg, " (offset %d)", e.Offset)
	}
	msg.WriteString(": ")
	msg.WriteString(e.Err.Error())
	if e.Excerpt != "" {
		msg.WriteString("\n  ")
		msg.WriteString(e.Excerpt)
	}
	return msg.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// wrapParseError adds format and position context to a parse error. Errors
// already carrying a ParseError keep their original position.
func wrapParseError(format Format, excerpt string, offset int, err error) error {
	if err == nil {
		return nil
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return err
	}
	return &ParseError{Format: format, Excerpt: excerpt, Offset: offset, Err: err}
}

// excerptAround renders a short window of input around the offset with a
// caret marking the failure position.
func excerptAround(input string, offset int) string {
	const contextLen = 40
	if input == "" {
		return ""
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(input) {
		offset = len(input)
	}

	start := offset - contextLen
	if start < 0 {
		start = 0
	}
	end := offset + contextLen
	if end > len(input) {
		end = len(input)
	}

	excerpt := input[start:end]
	caretPos := offset - start
	if start > 0 {
		excerpt = "..." + excerpt
		caretPos += 3
	}
	if end < len(input) {
		excerpt += "..."
	}
	if caretPos > len(excerpt) {
		caretPos = len(excerpt)
	}

	var result strings.Builder
	result.WriteString(excerpt)
	result.WriteString("\n  ")
	for i := 0; i < caretPos; i++ {
		result.WriteByte(' ')
	}
	result.WriteByte('^')
	return result.String()
}
