package llsd

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// JSON form: standard JSON syntax plus LLSD conventions layered on top.
// A JSON object with exactly one entry whose key is a reserved sigil and
// whose value is a string encodes a non-native type:
//
//	{"d": "…"}  date, ISO-8601 text
//	{"u": "…"}  uri
//	{"i": "…"}  uuid
//	{"b": "…"}  binary, base64 text
//
// This is a reserved-key rule, not a heuristic: such an object is always
// the typed value, never a one-entry map. JSON null is Undefined. A number
// without '.', 'e' or 'E' is an Integer, otherwise a Real. NaN and the
// infinities travel as the JSON strings "NaN", "Infinity" and "-Infinity",
// a non-standard extension kept for wire compatibility; those exact string
// payloads therefore decode back to Real.

type jsonParser struct {
	cur  *cursor
	opts Options
}

func parseJSON(data []byte, opts Options) (Value, error) {
	p := &jsonParser{
		cur:  &cursor{format: FormatJSON, input: string(data)},
		opts: opts,
	}
	value, err := p.value(0)
	if err != nil {
		return nil, err
	}
	if p.cur.more() {
		return nil, p.cur.errorf("unexpected trailing input")
	}
	return value, nil
}

func (p *jsonParser) value(depth int) (Value, error) {
	if depth > p.opts.MaxDepth {
		return nil, p.cur.fail(fmt.Errorf("%w: nesting depth exceeds %d", ErrLimitExceeded, p.opts.MaxDepth))
	}

	ch, err := p.cur.peek()
	if err != nil {
		return nil, err
	}

	switch {
	case ch == '{':
		return p.object(depth)
	case ch == '[':
		return p.array(depth)
	case ch == '"':
		text, err := p.stringToken()
		if err != nil {
			return nil, err
		}
		return jsonStringValue(text), nil
	case ch == 't' || ch == 'f' || ch == 'n':
		return p.literal()
	case ch == '-' || (ch >= '0' && ch <= '9'):
		return p.number()
	default:
		return nil, p.cur.errorf("unexpected character %q in JSON", ch)
	}
}

// jsonStringValue maps the non-standard non-finite spellings back to Real;
// every other string stays a string.
func jsonStringValue(text string) Value {
	switch text {
	case "NaN":
		return Real(math.NaN())
	case "Infinity":
		return Real(math.Inf(1))
	case "-Infinity":
		return Real(math.Inf(-1))
	default:
		return String(text)
	}
}

func (p *jsonParser) literal() (Value, error) {
	c := p.cur
	c.skipWS()
	start := c.pos
	for c.pos < len(c.input) && c.input[c.pos] >= 'a' && c.input[c.pos] <= 'z' {
		c.pos++
	}
	switch c.input[start:c.pos] {
	case "true":
		return Boolean(true), nil
	case "false":
		return Boolean(false), nil
	case "null":
		return Undefined{}, nil
	default:
		return nil, c.errorf("invalid literal %q", c.input[start:c.pos])
	}
}

func (p *jsonParser) number() (Value, error) {
	c := p.cur
	c.skipWS()
	start := c.pos
	isReal := false
	for c.pos < len(c.input) {
		ch := c.input[c.pos]
		switch {
		case ch >= '0' && ch <= '9', ch == '-', ch == '+':
			c.pos++
		case ch == '.', ch == 'e', ch == 'E':
			isReal = true
			c.pos++
		default:
			goto done
		}
	}
done:
	token := c.input[start:c.pos]
	if isReal {
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, c.errorf("invalid number %q", token)
		}
		return Real(f), nil
	}
	n, err := strconv.ParseInt(token, 10, 32)
	if err != nil {
		return nil, c.errorf("invalid integer %q", token)
	}
	return Integer(n), nil
}

func (p *jsonParser) array(depth int) (Value, error) {
	if err := p.cur.expect('['); err != nil {
		return nil, err
	}
	array := Array{}
	next, err := p.cur.peek()
	if err != nil {
		return nil, err
	}
	if next == ']' {
		p.cur.pos++
		return array, nil
	}

	for {
		elem, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		if len(array) >= p.opts.MaxCollectionSize {
			return nil, p.cur.fail(fmt.Errorf("%w: array exceeds %d elements", ErrLimitExceeded, p.opts.MaxCollectionSize))
		}
		array = append(array, elem)

		next, err := p.cur.consume()
		if err != nil {
			return nil, err
		}
		switch next {
		case ']':
			return array, nil
		case ',':
		default:
			return nil, p.cur.errorf("expected ',' or ']' in array but got %q", next)
		}
	}
}

func (p *jsonParser) object(depth int) (Value, error) {
	if err := p.cur.expect('{'); err != nil {
		return nil, err
	}
	m := Map{}
	// A single-entry sigil object decodes to a typed value; track the raw
	// string payload until a second entry or a non-string value rules the
	// sigil reading out.
	entries := 0
	var sigilKey, sigilText string
	sigilCandidate := false

	next, err := p.cur.peek()
	if err != nil {
		return nil, err
	}
	if next == '}' {
		p.cur.pos++
		return m, nil
	}

	for {
		key, err := p.stringToken()
		if err != nil {
			return nil, err
		}
		if err := p.cur.expect(':'); err != nil {
			return nil, err
		}

		valueStart, err := p.cur.peek()
		if err != nil {
			return nil, err
		}
		if entries == 0 && valueStart == '"' && isSigilKey(key) {
			text, err := p.stringToken()
			if err != nil {
				return nil, err
			}
			sigilCandidate = true
			sigilKey, sigilText = key, text
			m[key] = jsonStringValue(text)
		} else {
			elem, err := p.value(depth + 1)
			if err != nil {
				return nil, err
			}
			if len(m) >= p.opts.MaxCollectionSize {
				return nil, p.cur.fail(fmt.Errorf("%w: map exceeds %d entries", ErrLimitExceeded, p.opts.MaxCollectionSize))
			}
			m[key] = elem
		}
		entries++

		next, err := p.cur.consume()
		if err != nil {
			return nil, err
		}
		switch next {
		case '}':
			if sigilCandidate && entries == 1 {
				return p.sigilValue(sigilKey, sigilText)
			}
			return m, nil
		case ',':
		default:
			return nil, p.cur.errorf("expected ',' or '}' in object but got %q", next)
		}
	}
}

func isSigilKey(key string) bool {
	return key == "d" || key == "u" || key == "i" || key == "b"
}

func (p *jsonParser) sigilValue(key, text string) (Value, error) {
	switch key {
	case "d":
		secs, err := parseDateText(text)
		if err != nil {
			return nil, p.cur.fail(err)
		}
		return Date(secs), nil
	case "u":
		u, err := parseURIText(text)
		if err != nil {
			return nil, p.cur.fail(err)
		}
		return u, nil
	case "i":
		u, err := parseUUIDText(text)
		if err != nil {
			return nil, p.cur.fail(err)
		}
		return u, nil
	default: // "b"
		if base64DecodedCap(len(text)) > p.opts.MaxBinaryBytes {
			return nil, p.cur.fail(fmt.Errorf("%w: binary payload exceeds %d bytes", ErrLimitExceeded, p.opts.MaxBinaryBytes))
		}
		data, err := decodeBase64(text)
		if err != nil {
			return nil, p.cur.fail(err)
		}
		return Binary(data), nil
	}
}

// stringToken reads a JSON string including the standard backslash and
// \uXXXX escapes; surrogate pairs are combined.
func (p *jsonParser) stringToken() (string, error) {
	if err := p.cur.expect('"'); err != nil {
		return "", err
	}
	c := p.cur
	var sb strings.Builder
	for c.pos < len(c.input) {
		if sb.Len() > p.opts.MaxStringBytes {
			return "", c.fail(fmt.Errorf("%w: string exceeds %d bytes", ErrLimitExceeded, p.opts.MaxStringBytes))
		}
		ch := c.input[c.pos]
		c.pos++
		switch ch {
		case '"':
			return sb.String(), nil
		case '\\':
			if c.pos >= len(c.input) {
				return "", c.errorf("unterminated string escape")
			}
			esc := c.input[c.pos]
			c.pos++
			switch esc {
			case '"', '\\', '/':
				sb.WriteByte(esc)
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'u':
				r, err := p.unicodeEscape()
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
			default:
				return "", c.errorf("invalid escape character %q", esc)
			}
		default:
			sb.WriteByte(ch)
		}
	}
	return "", c.errorf("unterminated string")
}

func (p *jsonParser) unicodeEscape() (rune, error) {
	c := p.cur
	first, err := p.hex4()
	if err != nil {
		return 0, err
	}
	if !utf16.IsSurrogate(first) {
		return first, nil
	}
	// Expect a low surrogate to complete the pair.
	if c.pos+6 <= len(c.input) && c.input[c.pos] == '\\' && c.input[c.pos+1] == 'u' {
		c.pos += 2
		second, err := p.hex4()
		if err != nil {
			return 0, err
		}
		if combined := utf16.DecodeRune(first, second); combined != utf8.RuneError {
			return combined, nil
		}
	}
	return utf8.RuneError, nil
}

func (p *jsonParser) hex4() (rune, error) {
	c := p.cur
	if c.pos+4 > len(c.input) {
		return 0, c.errorf("invalid unicode escape")
	}
	hex := c.input[c.pos : c.pos+4]
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, c.errorf("invalid unicode escape %q", hex)
	}
	c.pos += 4
	return rune(n), nil
}

// serializeJSON renders a value in the JSON form. Map entries are emitted
// in sorted key order.
func serializeJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch tv := v.(type) {
	case nil, Undefined, TypedUndefined:
		buf.WriteString("null")
	case Boolean:
		if tv {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Integer:
		buf.WriteString(strconv.FormatInt(int64(tv), 10))
	case Real:
		writeJSONReal(buf, float64(tv))
	case String:
		writeJSONString(buf, string(tv))
	case UUID:
		buf.WriteString(`{"i":`)
		writeJSONString(buf, tv.String())
		buf.WriteByte('}')
	case Date:
		buf.WriteString(`{"d":`)
		writeJSONString(buf, formatDate(float64(tv)))
		buf.WriteByte('}')
	case URI:
		buf.WriteString(`{"u":`)
		writeJSONString(buf, string(tv))
		buf.WriteByte('}')
	case Binary:
		buf.WriteString(`{"b":`)
		writeJSONString(buf, encodeBase64(tv))
		buf.WriteByte('}')
	case Array:
		buf.WriteByte('[')
		for i, elem := range tv {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Map:
		buf.WriteByte('{')
		for i, key := range sortedKeys(tv) {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, key)
			buf.WriteByte(':')
			if err := writeJSON(buf, tv[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: %T in JSON output", ErrUnsupportedType, v)
	}
	return nil
}

func writeJSONReal(buf *bytes.Buffer, f float64) {
	switch {
	case math.IsNaN(f):
		buf.WriteString(`"NaN"`)
	case math.IsInf(f, 1):
		buf.WriteString(`"Infinity"`)
	case math.IsInf(f, -1):
		buf.WriteString(`"-Infinity"`)
	default:
		text := strconv.FormatFloat(f, 'g', -1, 64)
		// Keep whole reals distinguishable from integers on the wire.
		if !strings.ContainsAny(text, ".eE") {
			text += ".0"
		}
		buf.WriteString(text)
	}
}

func writeJSONString(buf *bytes.Buffer, text string) {
	buf.WriteByte('"')
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch ch {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if ch < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, ch)
			} else {
				buf.WriteByte(ch)
			}
		}
	}
	buf.WriteByte('"')
}
