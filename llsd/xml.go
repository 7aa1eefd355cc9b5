package llsd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// XML form: a single <llsd> root (case-insensitive) containing exactly one
// child element whose tag selects the type. A nested <undef/> inside a
// typed tag yields a TypedUndefined, distinct from a bare <undef/>.
//
// Parsing streams tokens from encoding/xml; the DOM is never materialized.

type xmlParser struct {
	dec  *xml.Decoder
	opts Options
}

func parseXML(data []byte, opts Options) (Value, error) {
	p := &xmlParser{dec: xml.NewDecoder(bytes.NewReader(data)), opts: opts}

	root, err := p.nextStartElement()
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(root.Name.Local, "llsd") {
		return nil, p.errorf("outermost tag is %q instead of \"llsd\"", root.Name.Local)
	}

	var value Value
	seen := 0
	for {
		tok, err := p.token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			seen++
			if seen > 1 {
				return nil, p.errorf("expected a single child element under <llsd>")
			}
			value, err = p.element(t, 0)
			if err != nil {
				return nil, err
			}
		case xml.EndElement:
			if seen != 1 {
				return nil, p.errorf("expected a single child element under <llsd>")
			}
			return value, nil
		case xml.CharData:
			// whitespace between elements
		}
	}
}

func (p *xmlParser) element(start xml.StartElement, depth int) (Value, error) {
	if depth > p.opts.MaxDepth {
		return nil, p.fail(fmt.Errorf("%w: nesting depth exceeds %d", ErrLimitExceeded, p.opts.MaxDepth))
	}

	tag := strings.ToLower(start.Name.Local)
	switch tag {
	case "array":
		return p.array(start, depth)
	case "map":
		return p.mapValue(start, depth)
	case "undef":
		if err := p.dec.Skip(); err != nil {
			return nil, p.fail(err)
		}
		return Undefined{}, nil
	}

	text, sawUndef, err := p.scalarContent(start)
	if err != nil {
		return nil, err
	}

	kind, ok := scalarKind(tag)
	if !ok {
		return nil, p.errorf("unexpected element <%s>", start.Name.Local)
	}
	if sawUndef {
		return TypedUndefined{Of: kind}, nil
	}
	return p.scalarValue(kind, text)
}

func scalarKind(tag string) (Kind, bool) {
	switch tag {
	case "boolean":
		return KindBoolean, true
	case "integer":
		return KindInteger, true
	case "real":
		return KindReal, true
	case "string":
		return KindString, true
	case "uuid":
		return KindUUID, true
	case "date":
		return KindDate, true
	case "uri":
		return KindURI, true
	case "binary":
		return KindBinary, true
	default:
		return KindUndefined, false
	}
}

// scalarValue converts element text to a value. Non-string scalars are
// trimmed first so indentation from pretty-printing producers is harmless.
func (p *xmlParser) scalarValue(kind Kind, text string) (Value, error) {
	switch kind {
	case KindBoolean:
		trimmed := strings.TrimSpace(text)
		return Boolean(trimmed == "1" || strings.EqualFold(trimmed, "true")), nil
	case KindInteger:
		n, err := parseIntegerText(strings.TrimSpace(text))
		if err != nil {
			return nil, p.fail(err)
		}
		return Integer(n), nil
	case KindReal:
		f, err := parseRealText(strings.TrimSpace(text))
		if err != nil {
			return nil, p.fail(err)
		}
		return Real(f), nil
	case KindString:
		if len(text) > p.opts.MaxStringBytes {
			return nil, p.fail(fmt.Errorf("%w: string exceeds %d bytes", ErrLimitExceeded, p.opts.MaxStringBytes))
		}
		return String(text), nil
	case KindUUID:
		u, err := parseUUIDText(strings.TrimSpace(text))
		if err != nil {
			return nil, p.fail(err)
		}
		return u, nil
	case KindDate:
		secs, err := parseDateText(strings.TrimSpace(text))
		if err != nil {
			return nil, p.fail(err)
		}
		return Date(secs), nil
	case KindURI:
		u, err := parseURIText(strings.TrimSpace(text))
		if err != nil {
			return nil, p.fail(err)
		}
		return u, nil
	default: // KindBinary
		trimmed := strings.TrimSpace(text)
		if base64DecodedCap(len(trimmed)) > p.opts.MaxBinaryBytes {
			return nil, p.fail(fmt.Errorf("%w: binary payload exceeds %d bytes", ErrLimitExceeded, p.opts.MaxBinaryBytes))
		}
		data, err := decodeBase64(trimmed)
		if err != nil {
			return nil, p.fail(err)
		}
		return Binary(data), nil
	}
}

// scalarContent gathers the text of a scalar element and reports whether a
// nested <undef/> was present. Other nested elements are skipped.
func (p *xmlParser) scalarContent(start xml.StartElement) (string, bool, error) {
	var sb strings.Builder
	sawUndef := false
	for {
		tok, err := p.token()
		if err != nil {
			return "", false, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if strings.EqualFold(t.Name.Local, "undef") {
				sawUndef = true
			}
			if err := p.dec.Skip(); err != nil {
				return "", false, p.fail(err)
			}
		case xml.EndElement:
			return sb.String(), sawUndef, nil
		}
	}
}

func (p *xmlParser) array(start xml.StartElement, depth int) (Value, error) {
	array := Array{}
	for {
		tok, err := p.token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			elem, err := p.element(t, depth+1)
			if err != nil {
				return nil, err
			}
			if len(array) >= p.opts.MaxCollectionSize {
				return nil, p.fail(fmt.Errorf("%w: array exceeds %d elements", ErrLimitExceeded, p.opts.MaxCollectionSize))
			}
			array = append(array, elem)
		case xml.EndElement:
			return array, nil
		case xml.CharData:
			// whitespace between elements
		}
	}
}

func (p *xmlParser) mapValue(start xml.StartElement, depth int) (Value, error) {
	m := Map{}
	var pendingKey string
	haveKey := false
	for {
		tok, err := p.token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !haveKey {
				if !strings.EqualFold(t.Name.Local, "key") {
					return nil, p.errorf("expected <key> in map but got <%s>", t.Name.Local)
				}
				pendingKey, err = p.keyText()
				if err != nil {
					return nil, err
				}
				haveKey = true
				continue
			}
			elem, err := p.element(t, depth+1)
			if err != nil {
				return nil, err
			}
			if len(m) >= p.opts.MaxCollectionSize {
				return nil, p.fail(fmt.Errorf("%w: map exceeds %d entries", ErrLimitExceeded, p.opts.MaxCollectionSize))
			}
			m[pendingKey] = elem
			haveKey = false
		case xml.EndElement:
			if haveKey {
				return nil, p.errorf("map has a key %q with no value; element count is odd", pendingKey)
			}
			return m, nil
		case xml.CharData:
			// whitespace between elements
		}
	}
}

// keyText reads the text content of a <key> element; nested elements are
// not allowed inside keys.
func (p *xmlParser) keyText() (string, error) {
	var sb strings.Builder
	for {
		tok, err := p.token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			return "", p.errorf("unexpected element <%s> inside map key", t.Name.Local)
		case xml.EndElement:
			return sb.String(), nil
		}
	}
}

func (p *xmlParser) nextStartElement() (xml.StartElement, error) {
	for {
		tok, err := p.token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func (p *xmlParser) token() (xml.Token, error) {
	tok, err := p.dec.Token()
	if err != nil {
		// The decoder reports truncation inside an element as a syntax
		// error rather than io.EOF.
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) || strings.Contains(err.Error(), "unexpected EOF") {
			return nil, &ParseError{Format: FormatXML, Offset: int(p.dec.InputOffset()), Err: ErrUnexpectedEOF}
		}
		return nil, p.fail(fmt.Errorf("%w: %v", ErrMalformedInput, err))
	}
	return tok, nil
}

func (p *xmlParser) errorf(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
	return &ParseError{Format: FormatXML, Offset: int(p.dec.InputOffset()), Err: err}
}

func (p *xmlParser) fail(err error) error {
	return wrapParseError(FormatXML, "", int(p.dec.InputOffset()), err)
}

// serializeXML renders a value in the XML tag form with 2-space indenting.
// Map entries are emitted in sorted key order.
func serializeXML(v Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	buf.WriteString("<llsd>\n")
	if err := writeXMLValue(&buf, v, "  "); err != nil {
		return nil, err
	}
	buf.WriteString("</llsd>\n")
	return buf.Bytes(), nil
}

func writeXMLValue(buf *bytes.Buffer, v Value, indent string) error {
	switch tv := v.(type) {
	case nil, Undefined:
		buf.WriteString(indent + "<undef/>\n")
	case TypedUndefined:
		tag := tv.Of.String()
		fmt.Fprintf(buf, "%s<%s><undef/></%s>\n", indent, tag, tag)
	case Boolean:
		writeXMLScalar(buf, indent, "boolean", tv.String())
	case Integer:
		writeXMLScalar(buf, indent, "integer", strconv.FormatInt(int64(tv), 10))
	case Real:
		writeXMLScalar(buf, indent, "real", formatReal(float64(tv)))
	case String:
		writeXMLScalar(buf, indent, "string", escapeXML(string(tv)))
	case UUID:
		writeXMLScalar(buf, indent, "uuid", tv.String())
	case Date:
		writeXMLScalar(buf, indent, "date", formatDate(float64(tv)))
	case URI:
		writeXMLScalar(buf, indent, "uri", escapeXML(string(tv)))
	case Binary:
		writeXMLScalar(buf, indent, "binary", encodeBase64(tv))
	case Array:
		buf.WriteString(indent + "<array>\n")
		for _, elem := range tv {
			if err := writeXMLValue(buf, elem, indent+"  "); err != nil {
				return err
			}
		}
		buf.WriteString(indent + "</array>\n")
	case Map:
		buf.WriteString(indent + "<map>\n")
		for _, key := range sortedKeys(tv) {
			fmt.Fprintf(buf, "%s  <key>%s</key>\n", indent, escapeXML(key))
			if err := writeXMLValue(buf, tv[key], indent+"  "); err != nil {
				return err
			}
		}
		buf.WriteString(indent + "</map>\n")
	default:
		return fmt.Errorf("%w: %T in XML output", ErrUnsupportedType, v)
	}
	return nil
}

func writeXMLScalar(buf *bytes.Buffer, indent, tag, text string) {
	fmt.Fprintf(buf, "%s<%s>%s</%s>\n", indent, tag, text, tag)
}

// escapeXML replaces the five XML-special characters with entities.
// Carriage returns become numeric references because XML readers normalize
// raw ones to newlines. The legacy encoder also escaped '-', which XML
// does not require; that quirk is intentionally not reproduced.
func escapeXML(text string) string {
	if !strings.ContainsAny(text, "<>&\"'\r") {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text) + 16)
	for i := 0; i < len(text); i++ {
		switch ch := text[i]; ch {
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '&':
			sb.WriteString("&amp;")
		case '"':
			sb.WriteString("&quot;")
		case '\'':
			sb.WriteString("&apos;")
		case '\r':
			sb.WriteString("&#13;")
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}
