// Package llsd implements LLSD (Linden Lab Structured Data), a typed,
// self-describing interchange format with four interoperable encodings:
// an XML tag form, a compact text Notation form, a byte-marker Binary wire
// form, and a JSON form with sigil-tagged extensions for non-native JSON
// types.
//
// The package centers on a closed tagged union, Value, plus one parse and
// one serialize function per format and a format auto-detector:
//
//	v, err := llsd.Parse(data, llsd.FormatNotation)
//	if err != nil {
//	    // handle error
//	}
//	out, err := llsd.Serialize(v, llsd.FormatXML)
//
// When the format of the input is unknown, ParseAuto inspects the leading
// bytes and dispatches to the right parser:
//
//	v, format, err := llsd.ParseAuto(data)
//
// All parsers enforce limits on nesting depth, collection sizes and
// string/binary payload lengths so hostile input fails fast with
// ErrLimitExceeded instead of exhausting memory or the stack. Limits are
// adjusted through functional options:
//
//	v, err := llsd.Parse(data, llsd.FormatBinary, llsd.OptMaxDepth(64))
//
// Codec state is allocated per call; the package-level functions are safe
// for concurrent use without locking.
package llsd
