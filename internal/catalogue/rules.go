package catalogue

import (
	"regexp"
	"strings"
)

// Rule is one shape rule within a manufacturer family. Matches is evaluated
// against the trimmed catalogue number; Apply is only called when Matches
// returned true.
type Rule struct {
	Name    string
	Matches func(catNum string) bool
	Apply   func(catNum string) string
}

var (
	digitLetterDigit = regexp.MustCompile(`[0-9][A-Z][0-9]`)
	trailingLetter   = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]*[A-Z]$`)
)

// families maps a manufacturer label to its ordered rules. Labels missing
// from the table format to themselves.
var families = map[Manufacturer][]Rule{
	Stryker: {
		{
			Name:    "digit-letter-digit",
			Matches: digitLetterDigit.MatchString,
			Apply:   dashAroundFirstInnerLetter,
		},
		{
			Name:    "trailing-letter",
			Matches: trailingLetter.MatchString,
			Apply:   func(s string) string { return split(s, 2) },
		},
		{
			Name:    "length-7",
			Matches: hasLength(7),
			Apply:   func(s string) string { return split(s, 2, 3) },
		},
	},
	ZimmerBiomet: {
		{
			Name:    "length-11",
			Matches: hasLength(11),
			Apply:   func(s string) string { return split(s, 2, 6, 9) },
		},
		{
			// Shadows the generic length-9 rule whenever index 4 is '0'.
			Name: "length-9-zero-at-4",
			Matches: func(s string) bool {
				r := []rune(s)
				return len(r) == 9 && r[4] == '0'
			},
			Apply: func(s string) string { return "00-" + split(s, 4, 7) },
		},
		{
			Name:    "length-9",
			Matches: hasLength(9),
			Apply:   func(s string) string { return split(s, 4, 6) },
		},
	},
	DePuy: {
		{
			Name:    "prefix-178",
			Matches: func(s string) bool { return strings.HasPrefix(s, "178") },
			Apply:   func(s string) string { return s },
		},
		{
			Name:    "length-9",
			Matches: hasLength(9),
			Apply:   func(s string) string { return split(s, 4, 6) },
		},
	},
}

// Rules returns the ordered rules for a manufacturer, or nil when the label
// has no family. The returned slice is a copy.
func Rules(m Manufacturer) []Rule {
	rules, ok := families[m]
	if !ok {
		return nil
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Families lists the manufacturer labels that have rule families.
func Families() []Manufacturer {
	return []Manufacturer{Stryker, ZimmerBiomet, DePuy}
}

func hasLength(n int) func(string) bool {
	return func(s string) bool {
		return len([]rune(s)) == n
	}
}

// split inserts a dash at each rune offset in cuts. Offsets must be
// ascending and within the string.
func split(s string, cuts ...int) string {
	r := []rune(s)
	parts := make([]string, 0, len(cuts)+1)
	prev := 0
	for _, c := range cuts {
		parts = append(parts, string(r[prev:c]))
		prev = c
	}
	parts = append(parts, string(r[prev:]))
	return strings.Join(parts, "-")
}

func dashAroundFirstInnerLetter(s string) string {
	loc := digitLetterDigit.FindStringIndex(s)
	if loc == nil {
		return s
	}
	// loc spans three ASCII bytes: digit, letter, digit.
	letter := loc[0] + 1
	return s[:letter] + "-" + s[letter:letter+1] + "-" + s[letter+1:]
}
