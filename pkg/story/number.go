package story

import (
	"bytes"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Number is a coordinate-like scalar as it appeared in the document. Story
// files written by hand mix numbers and strings ("lat": "48.85"), so decoding
// never fails on the value itself; Float decides whether it is usable.
type Number struct {
	raw string
	set bool
}

// Num returns a Number holding f.
func Num(f float64) Number {
	return Number{raw: strconv.FormatFloat(f, 'f', -1, 64), set: true}
}

// Str returns a Number holding the raw string s.
func Str(s string) Number {
	return Number{raw: s, set: true}
}

// IsSet reports whether the field was present and not null.
func (n Number) IsSet() bool { return n.set }

// Raw returns the value as written.
func (n Number) Raw() string { return n.raw }

// Float parses the value with parseFloat semantics: leading whitespace is
// skipped and the longest numeric prefix is used, so "12.5km" is 12.5. The
// second result is false when the field is absent, has no numeric prefix, or
// is not finite.
func (n Number) Float() (float64, bool) {
	if !n.set {
		return 0, false
	}
	prefix := numericPrefix(n.raw)
	if prefix == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// UnmarshalJSON accepts numbers, strings and null.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*n = Number{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number{raw: s, set: true}
	case b[0] == '{' || b[0] == '[':
		// Present but never numeric.
		*n = Number{raw: "", set: true}
	default:
		*n = Number{raw: string(b), set: true}
	}
	return nil
}

// MarshalJSON writes numeric values as JSON numbers and everything else as
// strings, so a round trip keeps the document readable.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte("null"), nil
	}
	if f, ok := n.Float(); ok && numericPrefix(n.raw) == n.raw {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return json.Marshal(n.raw)
}

// numericPrefix returns the longest prefix of s (after leading whitespace)
// that forms a decimal literal: [sign] digits [. digits] [e [sign] digits].
func numericPrefix(s string) string {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	s = s[i:]

	j := 0
	if j < len(s) && (s[j] == '+' || s[j] == '-') {
		j++
	}
	intStart := j
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	digits := j - intStart
	if j < len(s) && s[j] == '.' {
		k := j + 1
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if frac := k - (j + 1); frac > 0 || digits > 0 {
			digits += frac
			j = k
		}
	}
	if digits == 0 {
		return ""
	}
	if j < len(s) && (s[j] == 'e' || s[j] == 'E') {
		k := j + 1
		if k < len(s) && (s[k] == '+' || s[k] == '-') {
			k++
		}
		expStart := k
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > expStart {
			j = k
		}
	}
	return s[:j]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
