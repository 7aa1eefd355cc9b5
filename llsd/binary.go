package llsd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
)

// Binary wire form: optional literal "<?llsd/binary?>" header, optional
// whitespace, then exactly one value. Multi-byte fields are big-endian.
//
//	!           undefined
//	1 0         boolean
//	i + int32   integer
//	r + f64     real
//	s + int32 length + UTF-8 bytes   string
//	u + 16 raw bytes                 uuid (high 64 bits first)
//	d + f64 seconds since epoch      date
//	l + int32 length + UTF-8 bytes   uri
//	b + int32 length + raw bytes     binary
//	[ elements ]                     array
//	{ (k + sized key, value)* }      map
//
// Arrays and maps have no count prefix; the reader peeks one byte to
// detect the terminator before deciding whether another element follows.

type binaryReader struct {
	r    *bufio.Reader
	opts Options
	pos  int
}

// parseBinary decodes a whole in-memory buffer; trailing bytes after the
// value are an error. parseBinaryReader leaves trailing stream data for
// the caller instead.
func parseBinary(data []byte, opts Options) (Value, error) {
	br := bufio.NewReader(bytes.NewReader(data))
	v, err := parseBinaryReader(br, opts)
	if err != nil {
		return nil, err
	}
	if _, err := br.Peek(1); err != io.EOF {
		return nil, &ParseError{
			Format: FormatBinary,
			Offset: len(data) - br.Buffered(),
			Err:    fmt.Errorf("%w: trailing bytes after value", ErrMalformedInput),
		}
	}
	return v, nil
}

func parseBinaryReader(r *bufio.Reader, opts Options) (Value, error) {
	br := &binaryReader{r: r, opts: opts}

	br.skipWhitespace()
	if first, ok := br.peekByte(); ok && first == '<' {
		header := make([]byte, len(binaryHeader))
		if err := br.readFull(header); err != nil {
			return nil, err
		}
		if string(header) != binaryHeader {
			return nil, br.errorf("invalid binary header %q", header)
		}
		br.skipWhitespace()
	}

	return br.value(0)
}

func (br *binaryReader) value(depth int) (Value, error) {
	if depth > br.opts.MaxDepth {
		return nil, br.fail(fmt.Errorf("%w: nesting depth exceeds %d", ErrLimitExceeded, br.opts.MaxDepth))
	}

	marker, err := br.readByte()
	if err != nil {
		return nil, err
	}

	switch marker {
	case '!':
		return Undefined{}, nil
	case '1':
		return Boolean(true), nil
	case '0':
		return Boolean(false), nil
	case 'i':
		n, err := br.readInt32()
		if err != nil {
			return nil, err
		}
		return Integer(n), nil
	case 'r':
		f, err := br.readFloat64()
		if err != nil {
			return nil, err
		}
		return Real(f), nil
	case 's':
		text, err := br.readSized(br.opts.MaxStringBytes, "string")
		if err != nil {
			return nil, err
		}
		return String(text), nil
	case 'u':
		var raw [16]byte
		if err := br.readFull(raw[:]); err != nil {
			return nil, err
		}
		return UUID(uuid.UUID(raw)), nil
	case 'd':
		secs, err := br.readFloat64()
		if err != nil {
			return nil, err
		}
		return Date(secs), nil
	case 'l':
		text, err := br.readSized(br.opts.MaxStringBytes, "uri")
		if err != nil {
			return nil, err
		}
		u, err := parseURIText(string(text))
		if err != nil {
			return nil, br.fail(err)
		}
		return u, nil
	case 'b':
		data, err := br.readSized(br.opts.MaxBinaryBytes, "binary")
		if err != nil {
			return nil, err
		}
		return Binary(data), nil
	case '[':
		return br.array(depth)
	case '{':
		return br.mapValue(depth)
	default:
		return nil, br.errorf("unknown binary marker 0x%02X", marker)
	}
}

func (br *binaryReader) array(depth int) (Value, error) {
	array := Array{}
	for {
		next, ok := br.peekByte()
		if !ok {
			return nil, br.eof()
		}
		if next == ']' {
			br.discardByte()
			return array, nil
		}
		elem, err := br.value(depth + 1)
		if err != nil {
			return nil, err
		}
		if len(array) >= br.opts.MaxCollectionSize {
			return nil, br.fail(fmt.Errorf("%w: array exceeds %d elements", ErrLimitExceeded, br.opts.MaxCollectionSize))
		}
		array = append(array, elem)
	}
}

func (br *binaryReader) mapValue(depth int) (Value, error) {
	m := Map{}
	for {
		next, ok := br.peekByte()
		if !ok {
			return nil, br.eof()
		}
		if next == '}' {
			br.discardByte()
			return m, nil
		}

		marker, err := br.readByte()
		if err != nil {
			return nil, err
		}
		if marker != 'k' {
			return nil, br.errorf("expected key marker 'k' in map but got 0x%02X", marker)
		}
		key, err := br.readSized(br.opts.MaxStringBytes, "map key")
		if err != nil {
			return nil, err
		}
		elem, err := br.value(depth + 1)
		if err != nil {
			return nil, err
		}
		if len(m) >= br.opts.MaxCollectionSize {
			return nil, br.fail(fmt.Errorf("%w: map exceeds %d entries", ErrLimitExceeded, br.opts.MaxCollectionSize))
		}
		m[string(key)] = elem
	}
}

// readSized reads an int32 length prefix and then that many payload bytes.
// Negative lengths are rejected and the cap is enforced before any payload
// allocation; reads are chunked so a hostile length field never forces a
// full up-front allocation.
func (br *binaryReader) readSized(maxBytes int, what string) ([]byte, error) {
	length, err := br.readInt32()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, br.errorf("negative %s length %d", what, length)
	}
	if int(length) > maxBytes {
		return nil, br.fail(fmt.Errorf("%w: %s of %d bytes exceeds %d", ErrLimitExceeded, what, length, maxBytes))
	}

	const chunkSize = 64 << 10
	var buf bytes.Buffer
	remaining := int(length)
	chunk := make([]byte, min(chunkSize, remaining))
	for remaining > 0 {
		n := min(chunkSize, remaining)
		if err := br.readFull(chunk[:n]); err != nil {
			return nil, err
		}
		buf.Write(chunk[:n])
		remaining -= n
	}
	return buf.Bytes(), nil
}

func (br *binaryReader) readInt32() (int32, error) {
	var raw [4]byte
	if err := br.readFull(raw[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(raw[:])), nil
}

func (br *binaryReader) readFloat64() (float64, error) {
	var raw [8]byte
	if err := br.readFull(raw[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(raw[:])), nil
}

func (br *binaryReader) readByte() (byte, error) {
	b, err := br.r.ReadByte()
	if err != nil {
		return 0, br.eof()
	}
	br.pos++
	return b, nil
}

func (br *binaryReader) readFull(dst []byte) error {
	n, err := io.ReadFull(br.r, dst)
	br.pos += n
	if err != nil {
		return br.eof()
	}
	return nil
}

// peekByte probes for the next byte without consuming it. A false result
// means end of input, which is not by itself an error: the caller decides
// whether more input was required.
func (br *binaryReader) peekByte() (byte, bool) {
	b, err := br.r.Peek(1)
	if err != nil || len(b) == 0 {
		return 0, false
	}
	return b[0], true
}

func (br *binaryReader) discardByte() {
	_, _ = br.r.Discard(1)
	br.pos++
}

func (br *binaryReader) skipWhitespace() {
	for {
		b, ok := br.peekByte()
		if !ok {
			return
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			br.discardByte()
		default:
			return
		}
	}
}

func (br *binaryReader) errorf(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
	return &ParseError{Format: FormatBinary, Offset: br.pos, Err: err}
}

func (br *binaryReader) eof() error {
	return &ParseError{Format: FormatBinary, Offset: br.pos, Err: ErrUnexpectedEOF}
}

func (br *binaryReader) fail(err error) error {
	return wrapParseError(FormatBinary, "", br.pos, err)
}

// serializeBinary renders a value on the binary wire, header included so
// the output self-identifies to the format detector. Map entries are
// emitted in sorted key order.
func serializeBinary(v Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(binaryHeader)
	buf.WriteByte('\n')
	if err := writeBinaryValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBinaryValue(buf *bytes.Buffer, v Value) error {
	switch tv := v.(type) {
	case nil, Undefined, TypedUndefined:
		buf.WriteByte('!')
	case Boolean:
		if tv {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
	case Integer:
		buf.WriteByte('i')
		writeBinaryInt32(buf, int32(tv))
	case Real:
		buf.WriteByte('r')
		writeBinaryFloat64(buf, float64(tv))
	case String:
		buf.WriteByte('s')
		writeBinarySized(buf, []byte(tv))
	case UUID:
		buf.WriteByte('u')
		raw := uuid.UUID(tv)
		buf.Write(raw[:])
	case Date:
		buf.WriteByte('d')
		writeBinaryFloat64(buf, float64(tv))
	case URI:
		buf.WriteByte('l')
		writeBinarySized(buf, []byte(tv))
	case Binary:
		buf.WriteByte('b')
		writeBinarySized(buf, tv)
	case Array:
		buf.WriteByte('[')
		for _, elem := range tv {
			if err := writeBinaryValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Map:
		buf.WriteByte('{')
		for _, key := range sortedKeys(tv) {
			buf.WriteByte('k')
			writeBinarySized(buf, []byte(key))
			if err := writeBinaryValue(buf, tv[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: %T on binary wire", ErrUnsupportedType, v)
	}
	return nil
}

func writeBinaryInt32(buf *bytes.Buffer, n int32) {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], uint32(n))
	buf.Write(raw[:])
}

func writeBinaryFloat64(buf *bytes.Buffer, f float64) {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], math.Float64bits(f))
	buf.Write(raw[:])
}

func writeBinarySized(buf *bytes.Buffer, payload []byte) {
	writeBinaryInt32(buf, int32(len(payload)))
	buf.Write(payload)
}
