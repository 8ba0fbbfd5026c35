// Package payee canonicalizes free-text payee descriptions and scores how alike
// two of them are. Every function treats an empty input as "no information"
// and returns 0 or false instead of failing.
package payee

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

var tokenRegex = regexp.MustCompile(`\p{L}+|\p{N}+`)

// Normalize lowercases s and drops every character that is not a letter or a
// digit. "AMAZON.COM*MK1" becomes "amazoncommk1".
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

// NormalizedMatch reports whether a and b normalize to the same non-empty string.
func NormalizedMatch(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

// FuzzyMatch returns a 0–100 similarity derived from the edit distance of the
// normalized strings.
func FuzzyMatch(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}
	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	distance := levenshtein.DistanceForStrings([]rune(na), []rune(nb), levenshtein.DefaultOptionsWithSub)
	score := 100 * (1 - float64(distance)/float64(longest))
	if score < 0 {
		return 0
	}
	return score
}

// Tokens splits the normalized form of s on letter/digit boundaries:
// "Shell 7-Eleven #42" yields [shell 7 eleven 42].
func Tokens(s string) []string {
	return tokenRegex.FindAllString(Normalize(s), -1)
}

// TokenSimilarity returns the 0–100 overlap (intersection over union) of the
// boundary tokens of a and b.
func TokenSimilarity(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return 100 * float64(shared) / float64(union)
}

// Similarity is 100 for a normalized match and otherwise the better of the
// fuzzy and token scores.
func Similarity(a, b string) float64 {
	if NormalizedMatch(a, b) {
		return 100
	}
	return max(FuzzyMatch(a, b), TokenSimilarity(a, b))
}

// Contains reports whether the normalized form of haystack contains the
// normalized form of needle.
func Contains(haystack, needle string) bool {
	nh, nn := Normalize(haystack), Normalize(needle)
	if nh == "" || nn == "" {
		return false
	}
	return strings.Contains(nh, nn)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}
