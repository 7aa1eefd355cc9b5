package llsd

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bin builds a binary wire payload from fragments. Strings are literal
// bytes; ints become big-endian int32; float64s become big-endian IEEE-754.
func bin(fragments ...any) []byte {
	var buf bytes.Buffer
	for _, f := range fragments {
		switch v := f.(type) {
		case string:
			buf.WriteString(v)
		case []byte:
			buf.Write(v)
		case byte:
			buf.WriteByte(v)
		case int:
			var raw [4]byte
			binary.BigEndian.PutUint32(raw[:], uint32(int32(v)))
			buf.Write(raw[:])
		case float64:
			var raw [8]byte
			binary.BigEndian.PutUint64(raw[:], math.Float64bits(v))
			buf.Write(raw[:])
		default:
			panic("unsupported fragment")
		}
	}
	return buf.Bytes()
}

func TestBinaryParseScalars(t *testing.T) {
	u := uuid.MustParse("6bad258e-06f0-4a87-a659-493117c9c162")
	cases := []struct {
		name  string
		input []byte
		want  Value
	}{
		{"undef", bin("!"), Undefined{}},
		{"true", bin("1"), Boolean(true)},
		{"false", bin("0"), Boolean(false)},
		{"integer", bin("i", 42), Integer(42)},
		{"negative integer", bin("i", -7), Integer(-7)},
		{"real", bin("r", 3.5), Real(3.5)},
		{"string", bin("s", 5, "hello"), String("hello")},
		{"empty string", bin("s", 0), String("")},
		{"uuid", bin("u", u[:]), UUID(u)},
		{"date", bin("d", 1704067200.0), Date(1704067200)},
		{"uri", bin("l", 19, "http://example.com/"), URI("http://example.com/")},
		{"binary", bin("b", 2, []byte{0xde, 0xad}), Binary{0xde, 0xad}},
		{"empty binary", bin("b", 0), Binary{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input, FormatBinary)
			require.NoError(t, err)
			assert.True(t, Equal(tc.want, got), "want %v, got %v", tc.want, got)

			// The header is optional on input.
			withHeader := append([]byte(binaryHeader+"\n"), tc.input...)
			got, err = Parse(withHeader, FormatBinary)
			require.NoError(t, err)
			assert.True(t, Equal(tc.want, got))
		})
	}
}

func TestBinaryParseContainers(t *testing.T) {
	input := bin("[", "i", 1, "i", 2, "[", "s", 1, "x", "]", "]")
	got, err := Parse(input, FormatBinary)
	require.NoError(t, err)
	assert.True(t, Equal(Array{Integer(1), Integer(2), Array{String("x")}}, got))

	input = bin("{", "k", 1, "a", "i", 1, "k", 1, "b", "1", "}")
	got, err = Parse(input, FormatBinary)
	require.NoError(t, err)
	assert.True(t, Equal(Map{"a": Integer(1), "b": Boolean(true)}, got))

	got, err = Parse(bin("[", "]"), FormatBinary)
	require.NoError(t, err)
	assert.True(t, Equal(Array{}, got))

	got, err = Parse(bin("{", "}"), FormatBinary)
	require.NoError(t, err)
	assert.True(t, Equal(Map{}, got))
}

func TestBinaryParseErrors(t *testing.T) {
	cases := []struct {
		name     string
		input    []byte
		sentinel error
	}{
		{"empty input", nil, ErrUnexpectedEOF},
		{"unknown marker", bin("z"), ErrMalformedInput},
		{"truncated integer", bin("i", []byte{0, 0}), ErrUnexpectedEOF},
		{"truncated string payload", bin("s", 5, "hi"), ErrUnexpectedEOF},
		{"negative string length", bin("s", -1), ErrMalformedInput},
		{"unterminated array", bin("[", "i", 1), ErrUnexpectedEOF},
		{"map without key marker", bin("{", "i", 1, "}"), ErrMalformedInput},
		{"bad header", []byte("<?llsd/notquite?>!"), ErrMalformedInput},
		{"trailing bytes", bin("i", 1, "!"), ErrMalformedInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input, FormatBinary)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel, "got: %v", err)
		})
	}
}

func TestBinaryLengthLimitTripsBeforeAllocation(t *testing.T) {
	// Claims a 1 GiB string with only two payload bytes present. The limit
	// must trip on the declared length, not on an allocation or a read.
	input := bin("s", 1<<30, "hi")
	_, err := Parse(input, FormatBinary, OptMaxStringBytes(1024))
	assert.ErrorIs(t, err, ErrLimitExceeded)

	_, err = Parse(bin("b", 1<<30), FormatBinary, OptMaxBinaryBytes(1024))
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestBinaryDepthLimit(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 50; i++ {
		buf.WriteByte('[')
	}
	_, err := Parse(buf.Bytes(), FormatBinary, OptMaxDepth(10))
	assert.ErrorIs(t, err, ErrLimitExceeded)
}

func TestBinarySerializeEmitsHeader(t *testing.T) {
	out, err := Serialize(Integer(42), FormatBinary)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte(binaryHeader)))
	assert.Equal(t, FormatBinary, DetectFormat(out))
}

func TestBinarySerializeWire(t *testing.T) {
	out, err := Serialize(Integer(42), FormatBinary)
	require.NoError(t, err)
	assert.Equal(t, bin(binaryHeader, "\n", "i", 42), out)

	out, err = Serialize(String("hi"), FormatBinary)
	require.NoError(t, err)
	assert.Equal(t, bin(binaryHeader, "\n", "s", 2, "hi"), out)

	out, err = Serialize(Map{"a": Integer(1)}, FormatBinary)
	require.NoError(t, err)
	assert.Equal(t, bin(binaryHeader, "\n", "{", "k", 1, "a", "i", 1, "}"), out)
}

// The length prefix must be byte-exact for multi-byte UTF-8 text.
func TestBinaryStringLengthIsByteLength(t *testing.T) {
	text := "héllo 日本"
	out, err := Serialize(String(text), FormatBinary)
	require.NoError(t, err)

	payload := out[len(binaryHeader)+1:]
	require.Equal(t, byte('s'), payload[0])
	length := int32(binary.BigEndian.Uint32(payload[1:5]))
	assert.EqualValues(t, len(text), length)
	assert.Equal(t, text, string(payload[5:5+length]))
}

func TestBinaryEmptyStringStaysString(t *testing.T) {
	out, err := Serialize(String(""), FormatBinary)
	require.NoError(t, err)
	got, err := Parse(out, FormatBinary)
	require.NoError(t, err)
	assert.True(t, Equal(String(""), got), "empty string must not collapse to undef")
}
