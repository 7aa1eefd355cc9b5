package llsd

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Parse decodes data in the given format into a Value.
func Parse(data []byte, format Format, opts ...Option) (Value, error) {
	options := applyOptions(opts)
	switch format {
	case FormatXML:
		return parseXML(data, options)
	case FormatNotation:
		return parseNotation(data, options)
	case FormatBinary:
		return parseBinary(data, options)
	case FormatJSON:
		return parseJSON(data, options)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ParseAuto sniffs the format of data and decodes it, returning the value
// together with the format that was detected.
func ParseAuto(data []byte, opts ...Option) (Value, Format, error) {
	format := DetectFormat(data)
	v, err := Parse(data, format, opts...)
	if err != nil {
		return nil, format, err
	}
	return v, format, nil
}

// Serialize encodes a value in the given format. The output of each format
// parses back to an equal value, except that NaN reals compare unequal to
// themselves; use EquivalentNaN for round-trip checks involving NaN.
func Serialize(v Value, format Format, opts ...Option) ([]byte, error) {
	switch format {
	case FormatXML:
		return serializeXML(v)
	case FormatNotation:
		return serializeNotation(v)
	case FormatBinary:
		return serializeBinary(v)
	case FormatJSON:
		return serializeJSON(v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ParseReader decodes a value from r. The binary format is consumed as a
// stream; the text formats are buffered before parsing. The context is
// checked before any reading starts and again before decoding buffered
// input, so a cancelled context fails promptly.
func ParseReader(ctx context.Context, r io.Reader, format Format, opts ...Option) (Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if format == FormatBinary {
		return parseBinaryReader(bufio.NewReader(r), applyOptions(opts))
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Parse(data, format, opts...)
}

// ParseReaderAuto sniffs the format from the head of the stream, then
// decodes the value.
func ParseReaderAuto(ctx context.Context, r io.Reader, opts ...Option) (Value, Format, error) {
	if err := ctx.Err(); err != nil {
		return nil, FormatXML, err
	}
	br := bufio.NewReader(r)
	format, err := DetectFormatReader(br)
	if err != nil {
		return nil, format, err
	}
	v, err := ParseReader(ctx, br, format, opts...)
	if err != nil {
		return nil, format, err
	}
	return v, format, nil
}

// SerializeTo writes the encoded value to w.
func SerializeTo(w io.Writer, v Value, format Format, opts ...Option) error {
	data, err := Serialize(v, format, opts...)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
