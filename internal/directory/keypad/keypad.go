// Package keypad expands phone keypad digit strings into the name prefixes
// they can spell, T9 style.
package keypad

import "strings"

// Wildcard is the SQL LIKE suffix meaning "followed by anything".
const Wildcard = "%"

// MaxMappedDigits bounds how many letter-bearing digits a search query may
// carry. Expansion grows by up to 4x per digit, so 7 digits yield at most
// 16384 patterns.
const MaxMappedDigits = 7

var letters = map[rune]string{
	'2': "abc",
	'3': "def",
	'4': "ghi",
	'5': "jkl",
	'6': "mno",
	'7': "pqrs",
	'8': "tuv",
	'9': "wxyz",
}

// Pattern is a lowercase name prefix produced by one expansion.
type Pattern struct {
	prefix string
}

// NewPattern builds a pattern from a literal prefix.
func NewPattern(prefix string) Pattern {
	return Pattern{prefix: strings.ToLower(prefix)}
}

// Prefix returns the bare letters, for prefix-match primitives.
func (p Pattern) Prefix() string {
	return p.prefix
}

// String returns the prefix with the LIKE wildcard appended.
func (p Pattern) String() string {
	return p.prefix + Wildcard
}

// Matches reports whether name starts with the pattern prefix, ignoring case.
func (p Pattern) Matches(name string) bool {
	if len(name) < len(p.prefix) {
		return false
	}
	return strings.EqualFold(name[:len(p.prefix)], p.prefix)
}

// Expand returns every prefix pattern the digits can spell, in input order
// and alphabet order. Characters without letters (0, 1, anything that is not
// a digit 2-9) are skipped. Input with no letter-bearing digit yields no
// patterns rather than an empty prefix that would match every name.
func Expand(digits string) []Pattern {
	if digits == "" {
		return nil
	}

	candidates := []string{""}
	mapped := 0
	for _, d := range digits {
		set, ok := letters[d]
		if !ok {
			continue
		}
		mapped++
		next := make([]string, 0, len(candidates)*len(set))
		for _, c := range candidates {
			for _, l := range set {
				next = append(next, c+string(l))
			}
		}
		candidates = next
	}
	if mapped == 0 {
		return nil
	}

	patterns := make([]Pattern, len(candidates))
	for i, c := range candidates {
		patterns[i] = Pattern{prefix: c}
	}
	return patterns
}

// Strings renders patterns in their LIKE form.
func Strings(patterns []Pattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.String()
	}
	return out
}

// MappedDigits counts the characters of digits that carry letters.
func MappedDigits(digits string) int {
	n := 0
	for _, d := range digits {
		if _, ok := letters[d]; ok {
			n++
		}
	}
	return n
}

// Size returns how many patterns Expand(digits) produces without expanding.
func Size(digits string) int {
	if MappedDigits(digits) == 0 {
		return 0
	}
	n := 1
	for _, d := range digits {
		if set, ok := letters[d]; ok {
			n *= len(set)
		}
	}
	return n
}

// Encode maps a name to the digits that spell it. Letters outside a-z map
// to nothing.
func Encode(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		for d, set := range letters {
			if strings.ContainsRune(set, r) {
				b.WriteRune(d)
				break
			}
		}
	}
	return b.String()
}
