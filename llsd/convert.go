package llsd

import (
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Text conversion rules shared by the codecs. Formatting state is allocated
// per call; nothing here is retained between calls.

const dateSecondsLayout = "2006-01-02T15:04:05Z"

// formatReal renders a double as the shortest text that re-parses to the
// same value. NaN and the infinities use the lowercase spellings the text
// parsers accept.
func formatReal(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// parseRealText converts real text to a double. Empty text is 0.0 and
// "nan" is NaN; strconv also accepts the inf spellings.
func parseRealText(text string) (float64, error) {
	if text == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: real value %q", ErrMalformedInput, text)
	}
	return f, nil
}

// parseIntegerText converts integer text to an int32. Empty text is 0.
func parseIntegerText(text string) (int32, error) {
	if text == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: integer value %q", ErrMalformedInput, text)
	}
	return int32(n), nil
}

// formatDate renders seconds-since-epoch as ISO-8601 UTC text. Whole
// seconds use the plain form; fractional dates keep full nanosecond
// precision with trailing zeros trimmed, so formatted text re-parses to
// the same value.
func formatDate(secs float64) string {
	t := timeFromSeconds(secs)
	if t.Nanosecond() == 0 {
		return t.Format(dateSecondsLayout)
	}
	return t.Format("2006-01-02T15:04:05.999999999Z")
}

// parseDateText converts ISO-8601 text to seconds-since-epoch. Empty text
// is the epoch itself.
func parseDateText(text string) (float64, error) {
	if text == "" {
		return 0, nil
	}
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return 0, fmt.Errorf("%w: date value %q", ErrTypeConversion, text)
	}
	return secondsFromTime(t), nil
}

func timeFromSeconds(secs float64) time.Time {
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC()
}

func secondsFromTime(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// parseUUIDText converts canonical 8-4-4-4-12 text to a UUID. Empty text
// is the nil UUID.
func parseUUIDText(text string) (UUID, error) {
	if text == "" {
		return UUID{}, nil
	}
	if len(text) != 36 {
		return UUID{}, fmt.Errorf("%w: uuid value %q", ErrTypeConversion, text)
	}
	u, err := uuid.Parse(text)
	if err != nil {
		return UUID{}, fmt.Errorf("%w: uuid value %q", ErrTypeConversion, text)
	}
	return UUID(u), nil
}

// parseURIText validates URI text without resolving it.
func parseURIText(text string) (URI, error) {
	if _, err := url.Parse(text); err != nil {
		return "", fmt.Errorf("%w: uri value %q", ErrTypeConversion, text)
	}
	return URI(text), nil
}

// decodeBase64 converts base64 text to bytes. Empty text is a zero-length
// payload.
func decodeBase64(text string) ([]byte, error) {
	if text == "" {
		return []byte{}, nil
	}
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 data %q", ErrTypeConversion, text)
	}
	return data, nil
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
