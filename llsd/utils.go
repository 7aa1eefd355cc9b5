package llsd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Path navigation uses dot-separated segments. A segment that parses as a
// non-negative integer indexes into an Array; any other segment looks up a
// Map key. Lookups never fail: a missing or mistyped node yields the
// caller's default.

// Resolve walks a dot-separated path from root and reports whether a value
// was found.
func Resolve(root Value, path string) (Value, bool) {
	if path == "" {
		return root, root != nil
	}
	current := root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case Map:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case Array:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// GetString returns the string at path, or def when the path is missing or
// does not hold a String.
func GetString(root Value, path, def string) string {
	if v, ok := Resolve(root, path); ok {
		if s, ok := v.(String); ok {
			return string(s)
		}
	}
	return def
}

func GetInteger(root Value, path string, def int32) int32 {
	if v, ok := Resolve(root, path); ok {
		switch n := v.(type) {
		case Integer:
			return int32(n)
		case Real:
			return int32(n)
		}
	}
	return def
}

func GetReal(root Value, path string, def float64) float64 {
	if v, ok := Resolve(root, path); ok {
		switch n := v.(type) {
		case Real:
			return float64(n)
		case Integer:
			return float64(n)
		}
	}
	return def
}

func GetBoolean(root Value, path string, def bool) bool {
	if v, ok := Resolve(root, path); ok {
		if b, ok := v.(Boolean); ok {
			return bool(b)
		}
	}
	return def
}

func GetUUID(root Value, path string, def UUID) UUID {
	if v, ok := Resolve(root, path); ok {
		if u, ok := v.(UUID); ok {
			return u
		}
	}
	return def
}

// AsMap returns v as a Map, or an empty Map when v is not one.
func AsMap(v Value) Map {
	if m, ok := v.(Map); ok {
		return m
	}
	return Map{}
}

// AsArray returns v as an Array, or an empty Array when v is not one.
func AsArray(v Value) Array {
	if a, ok := v.(Array); ok {
		return a
	}
	return Array{}
}

// IsEmpty reports whether v carries no content: undefined values, empty
// strings and binaries, and empty containers are all empty.
func IsEmpty(v Value) bool {
	switch tv := v.(type) {
	case nil, Undefined, TypedUndefined:
		return true
	case String:
		return len(tv) == 0
	case Binary:
		return len(tv) == 0
	case Array:
		return len(tv) == 0
	case Map:
		return len(tv) == 0
	default:
		return false
	}
}

// Merge combines source into target and returns the result. Entries from
// source win; maps present on both sides merge recursively. Neither input
// is mutated and merged-in values are deep copies.
func Merge(target, source Map) Map {
	out := Map{}
	for key, v := range target {
		out[key] = Copy(v)
	}
	for key, v := range source {
		if tm, ok := out[key].(Map); ok {
			if sm, ok := v.(Map); ok {
				out[key] = Merge(tm, sm)
				continue
			}
		}
		out[key] = Copy(v)
	}
	return out
}

// ValidateRequired returns the paths that are missing or empty under root,
// in sorted order. An empty result means all requirements are met.
func ValidateRequired(root Value, paths ...string) []string {
	var missing []string
	for _, path := range paths {
		v, ok := Resolve(root, path)
		if !ok || IsEmpty(v) {
			missing = append(missing, path)
		}
	}
	sort.Strings(missing)
	return missing
}

// PrettyPrint renders a value as an indented human-readable tree for
// debugging. It never fails: nodes it cannot render appear as
// placeholders.
func PrettyPrint(v Value) string {
	var sb strings.Builder
	prettyWrite(&sb, v, "")
	return sb.String()
}

func prettyWrite(sb *strings.Builder, v Value, indent string) {
	switch tv := v.(type) {
	case nil, Undefined:
		sb.WriteString("undef")
	case TypedUndefined:
		fmt.Fprintf(sb, "undef(%s)", tv.Of)
	case Boolean, Integer, Real, UUID, Date, URI:
		sb.WriteString(v.String())
	case String:
		fmt.Fprintf(sb, "%q", string(tv))
	case Binary:
		fmt.Fprintf(sb, "binary(%d bytes)", len(tv))
	case Array:
		if len(tv) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteString("[\n")
		for _, elem := range tv {
			sb.WriteString(indent + "  ")
			prettyWrite(sb, elem, indent+"  ")
			sb.WriteString("\n")
		}
		sb.WriteString(indent + "]")
	case Map:
		if len(tv) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteString("{\n")
		for _, key := range sortedKeys(tv) {
			fmt.Fprintf(sb, "%s  %q: ", indent, key)
			prettyWrite(sb, tv[key], indent+"  ")
			sb.WriteString("\n")
		}
		sb.WriteString(indent + "}")
	default:
		fmt.Fprintf(sb, "<unprintable %T>", v)
	}
}
