package llsd

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
	}{
		{nil, ""},
		{ErrMalformedInput, ErrCodeMalformedInput},
		{ErrUnexpectedEOF, ErrCodeUnexpectedEOF},
		{ErrUnsupportedType, ErrCodeUnsupportedType},
		{ErrLimitExceeded, ErrCodeLimitExceeded},
		{ErrTypeConversion, ErrCodeTypeConversion},
		{ErrUnsupportedFormat, ErrCodeUnsupportedFormat},
		{fmt.Errorf("context: %w", ErrLimitExceeded), ErrCodeLimitExceeded},
		{&ParseError{Format: FormatXML, Offset: 3, Err: ErrMalformedInput}, ErrCodeMalformedInput},
		{errors.New("plain"), ErrCodeParseError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, Code(tc.err), "%v", tc.err)
	}
}

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{
		Format:  FormatNotation,
		Excerpt: "i4x\n   ^",
		Offset:  2,
		Err:     ErrMalformedInput,
	}
	msg := err.Error()
	assert.Contains(t, msg, "notation")
	assert.Contains(t, msg, "offset 2")
	assert.Contains(t, msg, "malformed input")
	assert.Contains(t, msg, "i4x")
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestWrapParseErrorKeepsInnermost(t *testing.T) {
	inner := &ParseError{Format: FormatJSON, Offset: 7, Err: ErrUnexpectedEOF}
	wrapped := wrapParseError(FormatXML, "", 99, inner)
	var got *ParseError
	require.True(t, errors.As(wrapped, &got))
	assert.Equal(t, FormatJSON, got.Format)
	assert.Equal(t, 7, got.Offset)

	assert.Nil(t, wrapParseError(FormatXML, "", 0, nil))
}

func TestExcerptAround(t *testing.T) {
	input := strings.Repeat("a", 100) + "X" + strings.Repeat("b", 100)
	excerpt := excerptAround(input, 100)
	assert.Contains(t, excerpt, "X")
	assert.Contains(t, excerpt, "^")
	assert.Contains(t, excerpt, "...")

	assert.Equal(t, "", excerptAround("", 5))

	short := excerptAround("i42", 1)
	assert.Contains(t, short, "i42")
	lines := strings.Split(short, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "   ^", lines[1])
}

func TestParseErrorsCarryPositions(t *testing.T) {
	_, err := Parse([]byte("[i1,i2,"), FormatNotation)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, FormatNotation, parseErr.Format)
	assert.GreaterOrEqual(t, parseErr.Offset, 0)
}
