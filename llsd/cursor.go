package llsd

import "fmt"

// cursor is a byte-position scanner over in-memory text, shared by the
// Notation and JSON tokenizers. End-of-input probes (more) are non-error;
// hard errors are reserved for true grammar violations, and report the
// offending offset with an excerpt.
type cursor struct {
	format Format
	input  string
	pos    int
}

func (c *cursor) skipWS() {
	for c.pos < len(c.input) {
		switch c.input[c.pos] {
		case ' ', '\t', '\r', '\n':
			c.pos++
		default:
			return
		}
	}
}

// more reports whether any non-whitespace input remains.
func (c *cursor) more() bool {
	c.skipWS()
	return c.pos < len(c.input)
}

func (c *cursor) peek() (byte, error) {
	c.skipWS()
	if c.pos >= len(c.input) {
		return 0, c.eof()
	}
	return c.input[c.pos], nil
}

func (c *cursor) consume() (byte, error) {
	c.skipWS()
	if c.pos >= len(c.input) {
		return 0, c.eof()
	}
	ch := c.input[c.pos]
	c.pos++
	return ch, nil
}

func (c *cursor) expect(expected byte) error {
	actual, err := c.consume()
	if err != nil {
		return err
	}
	if actual != expected {
		return c.errorf("expected %q but got %q", expected, actual)
	}
	return nil
}

// consumeUntil reads bytes up to (not including) whitespace or any of the
// delimiters. It never fails; the caller validates the token.
func (c *cursor) consumeUntil(delimiters ...byte) string {
	start := c.pos
scan:
	for c.pos < len(c.input) {
		ch := c.input[c.pos]
		switch ch {
		case ' ', '\t', '\r', '\n':
			break scan
		}
		for _, delim := range delimiters {
			if ch == delim {
				break scan
			}
		}
		c.pos++
	}
	return c.input[start:c.pos]
}

func (c *cursor) errorf(format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
	return &ParseError{
		Format:  c.format,
		Excerpt: excerptAround(c.input, c.pos),
		Offset:  c.pos,
		Err:     err,
	}
}

func (c *cursor) eof() error {
	return &ParseError{
		Format:  c.format,
		Excerpt: excerptAround(c.input, c.pos),
		Offset:  c.pos,
		Err:     ErrUnexpectedEOF,
	}
}

// fail wraps an existing error with position context.
func (c *cursor) fail(err error) error {
	return wrapParseError(c.format, excerptAround(c.input, c.pos), c.pos, err)
}
