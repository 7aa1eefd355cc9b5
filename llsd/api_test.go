package llsd

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allFormats = []Format{FormatXML, FormatNotation, FormatBinary, FormatJSON}

func sampleValues() map[string]Value {
	return map[string]Value{
		"undef":        Undefined{},
		"true":         Boolean(true),
		"false":        Boolean(false),
		"integer":      Integer(42),
		"min int":      Integer(math.MinInt32),
		"max int":      Integer(math.MaxInt32),
		"real":         Real(3.5),
		"whole real":   Real(2),
		"infinity":     Real(math.Inf(1)),
		"neg infinity": Real(math.Inf(-1)),
		"string":       String("hello world"),
		"empty string": String(""),
		"unicode":      String("héllo 日本 \U0001F600"),
		"uuid":         UUID(uuid.MustParse("6bad258e-06f0-4a87-a659-493117c9c162")),
		"nil uuid":     UUID{},
		"date":         Date(1704067200),
		"uri":          URI("http://example.com/a?b=c"),
		"binary":       Binary{0x00, 0xff, 0x10, 0x20},
		"empty binary": Binary{},
		"empty array":  Array{},
		"empty map":    Map{},
		"nested": Map{
			"name":  String("object"),
			"tags":  Array{String("a"), String("b")},
			"stats": Map{"count": Integer(3), "ratio": Real(0.5)},
			"blob":  Binary{1, 2, 3},
			"id":    UUID(uuid.MustParse("6bad258e-06f0-4a87-a659-493117c9c162")),
			"when":  Date(1704067200),
			"where": URI("http://example.com/"),
			"gone":  Undefined{},
		},
	}
}

func TestRoundTripAllFormats(t *testing.T) {
	for name, v := range sampleValues() {
		for _, format := range allFormats {
			t.Run(name+"/"+string(format), func(t *testing.T) {
				out, err := Serialize(v, format)
				require.NoError(t, err)
				got, err := Parse(out, format)
				require.NoError(t, err, "payload: %q", out)
				assert.True(t, Equal(v, got), "want %v, got %v", v, got)
			})
		}
	}
}

func TestRoundTripNaN(t *testing.T) {
	v := Real(math.NaN())
	for _, format := range allFormats {
		out, err := Serialize(v, format)
		require.NoError(t, err)
		got, err := Parse(out, format)
		require.NoError(t, err)
		assert.True(t, EquivalentNaN(v, got), "%s: got %v", format, got)
	}
}

func TestCrossFormatEquivalence(t *testing.T) {
	for name, v := range sampleValues() {
		var trees []Value
		for _, format := range allFormats {
			out, err := Serialize(v, format)
			require.NoError(t, err)
			got, err := Parse(out, format)
			require.NoError(t, err)
			trees = append(trees, got)
		}
		for i := 1; i < len(trees); i++ {
			assert.True(t, Equal(trees[0], trees[i]),
				"%s: %s tree differs from %s tree", name, allFormats[i], allFormats[0])
		}
	}
}

// JSON output is excluded: its container syntax overlaps Notation and the
// detector resolves the overlap in Notation's favor, so JSON must be
// requested explicitly.
func TestDetectAfterSerialize(t *testing.T) {
	for name, v := range sampleValues() {
		for _, format := range []Format{FormatXML, FormatNotation, FormatBinary} {
			out, err := Serialize(v, format)
			require.NoError(t, err)
			assert.Equal(t, format, DetectFormat(out), "%s/%s: %q", name, format, out)
		}
	}
}

func TestParseAuto(t *testing.T) {
	v := Map{"a": Integer(1), "b": String("x")}
	for _, format := range []Format{FormatXML, FormatNotation, FormatBinary} {
		out, err := Serialize(v, format)
		require.NoError(t, err)
		got, detected, err := ParseAuto(out)
		require.NoError(t, err)
		assert.Equal(t, format, detected)
		assert.True(t, Equal(v, got))
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, err := Parse([]byte("i1"), Format("yaml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = Serialize(Integer(1), Format("yaml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseReader(t *testing.T) {
	ctx := context.Background()

	out, err := Serialize(Array{Integer(1), Integer(2)}, FormatBinary)
	require.NoError(t, err)
	got, err := ParseReader(ctx, bytes.NewReader(out), FormatBinary)
	require.NoError(t, err)
	assert.True(t, Equal(Array{Integer(1), Integer(2)}, got))

	got, err = ParseReader(ctx, strings.NewReader("i42"), FormatNotation)
	require.NoError(t, err)
	assert.True(t, Equal(Integer(42), got))
}

func TestParseReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ParseReader(ctx, strings.NewReader("i42"), FormatNotation)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseReaderAuto(t *testing.T) {
	out, err := Serialize(Map{"k": String("v")}, FormatBinary)
	require.NoError(t, err)
	got, format, err := ParseReaderAuto(context.Background(), bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, FormatBinary, format)
	assert.True(t, Equal(Map{"k": String("v")}, got))
}

func TestSerializeTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SerializeTo(&buf, Integer(7), FormatNotation))
	assert.Equal(t, "i7", buf.String())
}

// End-to-end checks mirroring known producer/consumer behavior.
func TestScenarios(t *testing.T) {
	t.Run("notation integer", func(t *testing.T) {
		got, err := Parse([]byte("i42"), FormatNotation)
		require.NoError(t, err)
		require.True(t, Equal(Integer(42), got))
		out, err := Serialize(got, FormatNotation)
		require.NoError(t, err)
		assert.Equal(t, "i42", string(out))
	})

	t.Run("json date sigil to notation", func(t *testing.T) {
		got, err := Parse([]byte(`{"d":"2024-01-01T00:00:00Z"}`), FormatJSON)
		require.NoError(t, err)
		require.True(t, Equal(Date(1704067200), got))
		out, err := Serialize(got, FormatNotation)
		require.NoError(t, err)
		assert.Equal(t, `d"2024-01-01T00:00:00Z"`, string(out))
	})

	t.Run("binary integer with header", func(t *testing.T) {
		input := append([]byte(binaryHeader), 'i', 0x00, 0x00, 0x00, 0x2a)
		got, err := Parse(input, FormatBinary)
		require.NoError(t, err)
		assert.True(t, Equal(Integer(42), got))
	})

	t.Run("notation map through every format", func(t *testing.T) {
		got, err := Parse([]byte("{a:i1,b:i2}"), FormatNotation)
		require.NoError(t, err)
		want := Map{"a": Integer(1), "b": Integer(2)}
		require.True(t, Equal(want, got))
		for _, format := range allFormats {
			out, err := Serialize(got, format)
			require.NoError(t, err)
			back, err := Parse(out, format)
			require.NoError(t, err)
			assert.True(t, Equal(want, back), string(format))
		}
	})

	t.Run("empty array in every format", func(t *testing.T) {
		for _, format := range allFormats {
			out, err := Serialize(Array{}, format)
			require.NoError(t, err)
			got, err := Parse(out, format)
			require.NoError(t, err)
			require.True(t, Equal(Array{}, got), string(format))

			again, err := Serialize(got, format)
			require.NoError(t, err)
			assert.Equal(t, out, again, string(format))
		}
	})

	t.Run("xml nan text stays stable", func(t *testing.T) {
		got, err := Parse([]byte("<llsd><real>nan</real></llsd>"), FormatXML)
		require.NoError(t, err)
		out, err := Serialize(got, FormatXML)
		require.NoError(t, err)
		assert.Contains(t, string(out), "<real>nan</real>")
	})
}

func TestHostileInputsFailFast(t *testing.T) {
	t.Run("deep notation nesting", func(t *testing.T) {
		input := strings.Repeat("[", 100_000)
		_, err := Parse([]byte(input), FormatNotation)
		assert.ErrorIs(t, err, ErrLimitExceeded)
	})

	t.Run("deep binary nesting", func(t *testing.T) {
		input := bytes.Repeat([]byte("["), 100_000)
		_, err := Parse(input, FormatBinary)
		assert.ErrorIs(t, err, ErrLimitExceeded)
	})

	t.Run("deep json nesting", func(t *testing.T) {
		input := strings.Repeat("[", 100_000)
		_, err := Parse([]byte(input), FormatJSON)
		assert.ErrorIs(t, err, ErrLimitExceeded)
	})

	t.Run("deep xml nesting", func(t *testing.T) {
		input := "<llsd>" + strings.Repeat("<array>", 100_000)
		_, err := Parse([]byte(input), FormatXML)
		assert.ErrorIs(t, err, ErrLimitExceeded)
	})
}

// Serialization must be safe for concurrent use of shared values.
func TestConcurrentSerialize(t *testing.T) {
	v := Map{"when": Date(1704067200), "tags": Array{String("a")}}
	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func() {
			for j := 0; j < 50; j++ {
				for _, format := range allFormats {
					if _, err := Serialize(v, format); err != nil {
						done <- err
						return
					}
				}
			}
			done <- nil
		}()
	}
	for i := 0; i < 16; i++ {
		assert.NoError(t, <-done)
	}
}
