package llsd

import (
	"bytes"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Kind identifies LLSD value types.
type Kind uint8

const (
	// KindUndefined represents the absence of a value.
	KindUndefined Kind = iota
	// KindBoolean represents a boolean value.
	KindBoolean
	// KindInteger represents a 32-bit signed integer.
	KindInteger
	// KindReal represents an IEEE-754 double.
	KindReal
	// KindString represents UTF-8 text.
	KindString
	// KindUUID represents a 16-byte UUID.
	KindUUID
	// KindDate represents a UTC instant.
	KindDate
	// KindURI represents URI text.
	KindURI
	// KindBinary represents an opaque byte sequence.
	KindBinary
	// KindArray represents an ordered sequence of values.
	KindArray
	// KindMap represents a string-keyed mapping of values.
	KindMap
)

// String returns the lowercase LLSD name of the kind, matching the XML tag
// names of the scalar types.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undef"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindUUID:
		return "uuid"
	case KindDate:
		return "date"
	case KindURI:
		return "uri"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single LLSD datum. It is a closed union: the concrete types
// are Undefined, TypedUndefined, Boolean, Integer, Real, String, UUID,
// Date, URI, Binary, Array and Map. Values form finite trees; containers
// never reference an ancestor.
type Value interface {
	Kind() Kind
	String() string
}

// Undefined is the absence of a value.
type Undefined struct{}

// Kind returns KindUndefined.
func (Undefined) Kind() Kind { return KindUndefined }

// String returns "undef".
func (Undefined) String() string { return "undef" }

// TypedUndefined is an explicitly typed absence, an XML-only concept:
// <integer><undef/></integer> differs from a bare <undef/>. Of names the
// declared scalar type.
type TypedUndefined struct {
	Of Kind
}

// Kind returns KindUndefined; the declared type is carried in Of.
func (TypedUndefined) Kind() Kind { return KindUndefined }

// String returns the declared type followed by "(undef)".
func (t TypedUndefined) String() string { return t.Of.String() + "(undef)" }

// Boolean is an LLSD boolean.
type Boolean bool

// Kind returns KindBoolean.
func (Boolean) Kind() Kind { return KindBoolean }

// String returns "true" or "false".
func (b Boolean) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Integer is a 32-bit signed LLSD integer.
type Integer int32

// Kind returns KindInteger.
func (Integer) Kind() Kind { return KindInteger }

// String returns the decimal text of the integer.
func (i Integer) String() string { return fmt.Sprintf("%d", int32(i)) }

// Real is an IEEE-754 double. NaN is a legal value; note that NaN compares
// unequal to itself, so callers testing for it must use math.IsNaN.
type Real float64

// Kind returns KindReal.
func (Real) Kind() Kind { return KindReal }

// String returns the shortest decimal text that re-parses to the value.
func (r Real) String() string { return formatReal(float64(r)) }

// String is UTF-8 LLSD text.
type String string

// Kind returns KindString.
func (String) Kind() Kind { return KindString }

// String returns the text itself.
func (s String) String() string { return string(s) }

// UUID is a 16-byte LLSD UUID. Canonical text form is 8-4-4-4-12 lowercase
// hex. The zero value is the nil UUID.
type UUID uuid.UUID

// Kind returns KindUUID.
func (UUID) Kind() Kind { return KindUUID }

// String returns the canonical lowercase text form.
func (u UUID) String() string { return uuid.UUID(u).String() }

// Date is a UTC instant stored as seconds since the Unix epoch, with
// fractional precision.
type Date float64

// Kind returns KindDate.
func (Date) Kind() Kind { return KindDate }

// String returns the ISO-8601 text form of the date.
func (d Date) String() string { return formatDate(float64(d)) }

// URI is syntactically well-formed URI text. It is validated, not resolved.
type URI string

// Kind returns KindURI.
func (URI) Kind() Kind { return KindURI }

// String returns the URI text.
func (u URI) String() string { return string(u) }

// Binary is an opaque byte sequence of arbitrary length.
type Binary []byte

// Kind returns KindBinary.
func (Binary) Kind() Kind { return KindBinary }

// String returns a short summary of the payload length.
func (b Binary) String() string { return fmt.Sprintf("binary[%d bytes]", len(b)) }

// Array is an ordered sequence of values. Order is significant.
type Array []Value

// Kind returns KindArray.
func (Array) Kind() Kind { return KindArray }

// String returns a short summary of the element count.
func (a Array) String() string { return fmt.Sprintf("array[%d]", len(a)) }

// Map is a string-keyed mapping of values. Key order is not retained;
// serializers emit entries in sorted key order for deterministic output.
type Map map[string]Value

// Kind returns KindMap.
func (Map) Kind() Kind { return KindMap }

// String returns a short summary of the entry count.
func (m Map) String() string { return fmt.Sprintf("map[%d]", len(m)) }

// Equal reports whether two values are deeply equal under the format's own
// equality: same variant, same payload, containers compared element-wise.
// Real follows IEEE-754, so a NaN is not equal to anything, itself
// included.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	case TypedUndefined:
		bv, ok := b.(TypedUndefined)
		return ok && av.Of == bv.Of
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av == bv
	case Integer:
		bv, ok := b.(Integer)
		return ok && av == bv
	case Real:
		bv, ok := b.(Real)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case UUID:
		bv, ok := b.(UUID)
		return ok && av == bv
	case Date:
		bv, ok := b.(Date)
		return ok && av == bv
	case URI:
		bv, ok := b.(URI)
		return ok && av == bv
	case Binary:
		bv, ok := b.(Binary)
		return ok && bytes.Equal(av, bv)
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !Equal(v, other) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		return false
	}
}

// EquivalentNaN is Equal except that a NaN Real or Date compares equal to
// another of the same variant. Equal never matches NaN, so round-trip
// checks on trees that may carry NaN payloads use this instead.
func EquivalentNaN(a, b Value) bool {
	switch av := a.(type) {
	case Real:
		bv, ok := b.(Real)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case Date:
		bv, ok := b.(Date)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !EquivalentNaN(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !EquivalentNaN(v, other) {
				return false
			}
		}
		return true
	default:
		return Equal(a, b)
	}
}

// Copy returns a deep copy of the value. Containers and Binary payloads
// are duplicated; scalar variants are value types and copy implicitly.
// A parsed tree stays immutable as long as mutation goes through a Copy.
func Copy(v Value) Value {
	switch tv := v.(type) {
	case Binary:
		dup := make(Binary, len(tv))
		copy(dup, tv)
		return dup
	case Array:
		dup := make(Array, len(tv))
		for i, elem := range tv {
			dup[i] = Copy(elem)
		}
		return dup
	case Map:
		dup := make(Map, len(tv))
		for k, elem := range tv {
			dup[k] = Copy(elem)
		}
		return dup
	default:
		return v
	}
}
