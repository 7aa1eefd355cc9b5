package llsd

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Notation is the compact, whitespace-insensitive text form. Values carry
// single-character type prefixes:
//
//	!            undefined
//	1 t T true   boolean true
//	0 f F false  boolean false
//	i<digits>    integer
//	r<float>     real ("nan", "inf" and "-inf" are accepted spellings)
//	s'…' s"…"    string, backslash-escaped (bare '…'/"…" also accepted)
//	u<uuid>      uuid
//	d<iso8601>   date (quotes optional)
//	l<uri>       uri (quotes optional)
//	b64"…"       binary, base64 payload
//	b(n)"…"      binary, n literal bytes
//	[v,v,…]      array
//	{k:v,k:v,…}  map, keys are bare identifiers or quoted strings

type notationParser struct {
	cur  *cursor
	opts Options
}

func parseNotation(data []byte, opts Options) (Value, error) {
	p := &notationParser{
		cur:  &cursor{format: FormatNotation, input: string(data)},
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

func (p *notationParser) value(depth int) (Value, error) {
	if depth > p.opts.MaxDepth {
		return nil, p.cur.fail(fmt.Errorf("%w: nesting depth exceeds %d", ErrLimitExceeded, p.opts.MaxDepth))
	}

	marker, err := p.cur.peek()
	if err != nil {
		return nil, err
	}

	switch marker {
	case '!':
		p.cur.pos++
		return Undefined{}, nil
	case '1', 't', 'T':
		return p.boolean(true)
	case '0', 'f', 'F':
		return p.boolean(false)
	case 'i':
		p.cur.pos++
		return p.integer()
	case 'r':
		p.cur.pos++
		return p.real()
	case 's':
		p.cur.pos++
		delim, err := p.cur.peek()
		if err != nil {
			return nil, err
		}
		if delim != '\'' && delim != '"' {
			return nil, p.cur.errorf("expected string delimiter after 's' but got %q", delim)
		}
		p.cur.pos++
		text, err := p.quoted(delim)
		if err != nil {
			return nil, err
		}
		return String(text), nil
	case '\'', '"':
		// Bare quoted strings appear in legacy producers.
		p.cur.pos++
		text, err := p.quoted(marker)
		if err != nil {
			return nil, err
		}
		return String(text), nil
	case 'u':
		p.cur.pos++
		return p.uuid()
	case 'd':
		p.cur.pos++
		return p.date()
	case 'l':
		p.cur.pos++
		return p.uri()
	case 'b':
		p.cur.pos++
		return p.binary()
	case '[':
		return p.array(depth)
	case '{':
		return p.mapValue(depth)
	default:
		return nil, p.cur.errorf("unrecognized notation marker %q", marker)
	}
}

func (p *notationParser) boolean(expected bool) (Value, error) {
	first, err := p.cur.consume()
	if err != nil {
		return nil, err
	}
	switch first {
	case '1':
		return Boolean(true), nil
	case '0':
		return Boolean(false), nil
	}

	// 't'/'f' may stand alone or spell the full word.
	word := string(first) + p.cur.consumeUntil(',', ']', '}', ':')
	lower := strings.ToLower(word)
	if expected && (lower == "t" || lower == "true") {
		return Boolean(true), nil
	}
	if !expected && (lower == "f" || lower == "false") {
		return Boolean(false), nil
	}
	return nil, p.cur.errorf("invalid boolean value %q", word)
}

func (p *notationParser) integer() (Value, error) {
	token := p.cur.consumeUntil(',', ']', '}', ':')
	if token == "" {
		return nil, p.cur.errorf("missing integer digits after 'i'")
	}
	n, err := parseIntegerText(token)
	if err != nil {
		return nil, p.cur.fail(err)
	}
	return Integer(n), nil
}

func (p *notationParser) real() (Value, error) {
	token := p.cur.consumeUntil(',', ']', '}', ':')
	if token == "" {
		return nil, p.cur.errorf("missing real literal after 'r'")
	}
	f, err := parseRealText(token)
	if err != nil {
		return nil, p.cur.fail(err)
	}
	return Real(f), nil
}

func (p *notationParser) uuid() (Value, error) {
	token := p.cur.consumeUntil(',', ']', '}', ':')
	if token == "" {
		return nil, p.cur.errorf("missing uuid text after 'u'")
	}
	u, err := parseUUIDText(token)
	if err != nil {
		return nil, p.cur.fail(err)
	}
	return u, nil
}

func (p *notationParser) date() (Value, error) {
	text, err := p.quotedOrBareToken()
	if err != nil {
		return nil, err
	}
	secs, err := parseDateText(text)
	if err != nil {
		return nil, p.cur.fail(err)
	}
	return Date(secs), nil
}

func (p *notationParser) uri() (Value, error) {
	text, err := p.quotedOrBareToken()
	if err != nil {
		return nil, err
	}
	u, err := parseURIText(text)
	if err != nil {
		return nil, p.cur.fail(err)
	}
	return u, nil
}

// quotedOrBareToken reads the payload of a 'd' or 'l' value. Serializers
// quote these payloads; bare tokens are accepted for compatibility with
// legacy producers. ISO dates and URIs contain ':', so bare tokens stop
// only at container delimiters and whitespace.
func (p *notationParser) quotedOrBareToken() (string, error) {
	delim, err := p.cur.peek()
	if err != nil {
		return "", err
	}
	if delim == '\'' || delim == '"' {
		p.cur.pos++
		return p.quoted(delim)
	}
	return p.cur.consumeUntil(',', ']', '}'), nil
}

func (p *notationParser) binary() (Value, error) {
	next, err := p.cur.peek()
	if err != nil {
		return nil, err
	}

	switch {
	case next >= '0' && next <= '9':
		encoding := p.cur.consumeUntil('"', '\'')
		if encoding != "64" {
			return nil, p.cur.errorf("unsupported binary encoding %q", encoding)
		}
		delim, err := p.cur.consume()
		if err != nil {
			return nil, err
		}
		if delim != '"' && delim != '\'' {
			return nil, p.cur.errorf("expected quote after b64 but got %q", delim)
		}
		text, err := p.quoted(delim)
		if err != nil {
			return nil, err
		}
		if base64DecodedCap(len(text)) > p.opts.MaxBinaryBytes {
			return nil, p.cur.fail(fmt.Errorf("%w: binary payload exceeds %d bytes", ErrLimitExceeded, p.opts.MaxBinaryBytes))
		}
		data, err := decodeBase64(text)
		if err != nil {
			return nil, p.cur.fail(err)
		}
		return Binary(data), nil

	case next == '(':
		p.cur.pos++
		sizeText := p.cur.consumeUntil(')')
		if err := p.cur.expect(')'); err != nil {
			return nil, err
		}
		size, err := strconv.Atoi(sizeText)
		if err != nil || size < 0 {
			return nil, p.cur.errorf("invalid binary length %q", sizeText)
		}
		if size > p.opts.MaxBinaryBytes {
			return nil, p.cur.fail(fmt.Errorf("%w: binary payload of %d bytes exceeds %d", ErrLimitExceeded, size, p.opts.MaxBinaryBytes))
		}
		delim, err := p.cur.consume()
		if err != nil {
			return nil, err
		}
		if delim != '"' && delim != '\'' {
			return nil, p.cur.errorf("expected quote after binary length but got %q", delim)
		}
		// The payload is size literal bytes, no escape processing.
		if p.cur.pos+size > len(p.cur.input) {
			return nil, p.cur.eof()
		}
		data := []byte(p.cur.input[p.cur.pos : p.cur.pos+size])
		p.cur.pos += size
		if p.cur.pos >= len(p.cur.input) {
			return nil, p.cur.errorf("unterminated raw binary")
		}
		if p.cur.input[p.cur.pos] != delim {
			return nil, p.cur.errorf("binary length mismatch: declared %d bytes", size)
		}
		p.cur.pos++
		return Binary(data), nil

	default:
		return nil, p.cur.errorf("expected digit or '(' after 'b' but got %q", next)
	}
}

func (p *notationParser) array(depth int) (Value, error) {
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

func (p *notationParser) mapValue(depth int) (Value, error) {
	if err := p.cur.expect('{'); err != nil {
		return nil, err
	}
	m := Map{}
	next, err := p.cur.peek()
	if err != nil {
		return nil, err
	}
	if next == '}' {
		p.cur.pos++
		return m, nil
	}

	for {
		key, err := p.mapKey()
		if err != nil {
			return nil, err
		}
		if err := p.cur.expect(':'); err != nil {
			return nil, err
		}
		elem, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		if len(m) >= p.opts.MaxCollectionSize {
			return nil, p.cur.fail(fmt.Errorf("%w: map exceeds %d entries", ErrLimitExceeded, p.opts.MaxCollectionSize))
		}
		m[key] = elem

		next, err := p.cur.consume()
		if err != nil {
			return nil, err
		}
		switch next {
		case '}':
			return m, nil
		case ',':
		default:
			return nil, p.cur.errorf("expected ',' or '}' in map but got %q", next)
		}
	}
}

// mapKey reads a bare identifier or quoted string key. A key starting with
// 's' is ambiguous between a quoted-string key (s'…') and a bare
// identifier beginning with the letter s; one token of lookahead with
// backtrack disambiguates.
func (p *notationParser) mapKey() (string, error) {
	start, err := p.cur.peek()
	if err != nil {
		return "", err
	}

	switch {
	case start == '\'' || start == '"':
		p.cur.pos++
		return p.quoted(start)
	case start == 's':
		saved := p.cur.pos
		p.cur.pos++
		if p.cur.pos < len(p.cur.input) {
			if delim := p.cur.input[p.cur.pos]; delim == '\'' || delim == '"' {
				p.cur.pos++
				return p.quoted(delim)
			}
		}
		p.cur.pos = saved
		return p.cur.consumeUntil(':'), nil
	case isIdentStart(start):
		return p.cur.consumeUntil(':'), nil
	default:
		return "", p.cur.errorf("invalid map key starting with %q", start)
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// quoted reads up to the closing delimiter, processing backslash escapes.
// The opening delimiter must already be consumed. Unrecognized escapes are
// kept verbatim.
func (p *notationParser) quoted(delim byte) (string, error) {
	var sb strings.Builder
	c := p.cur
	for c.pos < len(c.input) {
		if sb.Len() > p.opts.MaxStringBytes {
			return "", c.fail(fmt.Errorf("%w: string exceeds %d bytes", ErrLimitExceeded, p.opts.MaxStringBytes))
		}
		ch := c.input[c.pos]
		c.pos++
		switch ch {
		case delim:
			return sb.String(), nil
		case '\\':
			if c.pos >= len(c.input) {
				return "", c.errorf("unterminated string escape")
			}
			esc := c.input[c.pos]
			c.pos++
			switch esc {
			case '"', '\'', '\\':
				sb.WriteByte(esc)
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte(ch)
		}
	}
	return "", c.errorf("unterminated string")
}

// base64DecodedCap is an upper bound on decoded size, checked before
// allocation.
func base64DecodedCap(textLen int) int {
	return textLen / 4 * 3
}

// serializeNotation renders a value in Notation form. Map entries are
// emitted in sorted key order.
func serializeNotation(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNotation(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNotation(buf *bytes.Buffer, v Value) error {
	switch tv := v.(type) {
	case nil, Undefined, TypedUndefined:
		buf.WriteByte('!')
	case Boolean:
		if tv {
			buf.WriteByte('t')
		} else {
			buf.WriteByte('f')
		}
	case Integer:
		buf.WriteByte('i')
		buf.WriteString(strconv.FormatInt(int64(tv), 10))
	case Real:
		buf.WriteByte('r')
		buf.WriteString(formatReal(float64(tv)))
	case String:
		buf.WriteByte('s')
		writeNotationQuoted(buf, string(tv), '\'')
	case UUID:
		buf.WriteByte('u')
		buf.WriteString(tv.String())
	case Date:
		buf.WriteString(`d"`)
		buf.WriteString(formatDate(float64(tv)))
		buf.WriteByte('"')
	case URI:
		buf.WriteString(`l"`)
		buf.WriteString(escapeNotation(string(tv), '"'))
		buf.WriteByte('"')
	case Binary:
		buf.WriteString(`b64"`)
		buf.WriteString(encodeBase64(tv))
		buf.WriteByte('"')
	case Array:
		buf.WriteByte('[')
		for i, elem := range tv {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNotation(buf, elem); err != nil {
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
			writeNotationQuoted(buf, key, '\'')
			buf.WriteByte(':')
			if err := writeNotation(buf, tv[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: %T in notation output", ErrUnsupportedType, v)
	}
	return nil
}

func writeNotationQuoted(buf *bytes.Buffer, text string, delim byte) {
	buf.WriteByte(delim)
	buf.WriteString(escapeNotation(text, delim))
	buf.WriteByte(delim)
}

func escapeNotation(text string, delim byte) string {
	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch ch {
		case delim, '\\':
			sb.WriteByte('\\')
			sb.WriteByte(ch)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

func sortedKeys(m Map) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
