// Package textparse holds the small free-text helpers shared by the catalog lookup
// and the booking conversation.
package textparse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	spaceRE   = regexp.MustCompile(`\s+`)
	ordinalRE = regexp.MustCompile(`(?i)^(?:(?:option|number|no\.?|choice|#)\s*)?(\d{1,3})(?:st|nd|rd|th)?(?:\s+(?:one|please|pls))?$`)
	wordRE    = regexp.MustCompile(`(?i)^(?:the\s+)?(\w+)(?:\s+(?:one|option|slot|please|pls))?$`)
)

var ordinalWords = map[string]int{
	"first":   1,
	"second":  2,
	"third":   3,
	"fourth":  4,
	"fifth":   5,
	"sixth":   6,
	"seventh": 7,
	"eighth":  8,
	"ninth":   9,
	"tenth":   10,
	"one":     1,
	"two":     2,
	"three":   3,
	"four":    4,
	"five":    5,
	"six":     6,
	"seven":   7,
	"eight":   8,
	"nine":    9,
	"ten":     10,
}

// Normalize lowercases, trims trailing punctuation and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!?,;")
	return spaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ParseOrdinal recognizes list positions such as "2", "#2", "option 2", "2nd",
// "second" or "the second one". It returns false for anything else.
func ParseOrdinal(s string) (int, bool) {
	s = Normalize(s)
	if s == "" {
		return 0, false
	}
	if m := ordinalRE.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	}
	if m := wordRE.FindStringSubmatch(s); m != nil {
		if n, ok := ordinalWords[m[1]]; ok {
			return n, true
		}
	}
	return 0, false
}

// IsBareNumber reports whether s is only digits.
func IsBareNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
