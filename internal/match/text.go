// Package match scores screened parties against watchlist entities.
//
// Matching is deliberately conservative: names are compared on
// accent-stripped token sets, identifiers on whitespace-free upper-case
// forms, and every point awarded is tied to a named signal so the response
// can explain itself. Thresholds and weights live in Policy.
package match

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords are dropped during tokenization. Kept deliberately small:
// corporate suffixes (Ltd, GmbH, SA) stay in because removing them
// collapses too many distinct company names together.
var stopWords = map[string]bool{
	"of":  true,
	"the": true,
	"and": true,
}

func isAllowedPunct(r rune) bool {
	switch r {
	case '-', '\'', '@', '.', '_':
		return true
	}
	return false
}

// NormalizeText lower-cases (full Unicode case folding), applies NFKC, and
// replaces every rune that is not alphanumeric, whitespace or one of
// - ' @ . _ with a space, then collapses runs of whitespace. Accents are
// preserved.
func NormalizeText(s string) string {
	return normalizeBasic(s)
}

// NormalizeTextStripped is NormalizeText applied after accent removal.
// This is the form used for name tokens.
func NormalizeTextStripped(s string) string {
	return normalizeBasic(StripAccents(s))
}

func normalizeBasic(s string) string {
	if s == "" {
		return ""
	}
	folded := cases.Fold().String(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || isAllowedPunct(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// StripAccents decomposes to NFKD and removes combining marks, so that
// "Müller" and "Muller" compare equal.
func StripAccents(s string) string {
	if s == "" {
		return ""
	}
	stripper := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(stripper, s)
	if err != nil {
		return s
	}
	return out
}

// CollapseDuplicateTokens repairs names that arrive doubled up, either as a
// full repetition ("John Smith John Smith") or as stuttered adjacent tokens
// ("John John Smith"). Comparison is on whitespace-split tokens as-is.
func CollapseDuplicateTokens(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return ""
	}
	if len(tokens)%2 == 0 {
		mid := len(tokens) / 2
		if equalTokens(tokens[:mid], tokens[mid:]) {
			return strings.Join(tokens[:mid], " ")
		}
	}
	deduped := tokens[:0]
	prev := ""
	for _, tok := range tokens {
		if tok != prev {
			deduped = append(deduped, tok)
		}
		prev = tok
	}
	return strings.Join(deduped, " ")
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Tokenize normalizes with accents stripped and returns tokens longer than
// two runes that are not stop words. This is the scoring token set.
func Tokenize(s string) []string {
	var out []string
	for _, t := range strings.Fields(NormalizeTextStripped(s)) {
		if utf8.RuneCountInString(t) > 2 && !stopWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// RawTokens normalizes with accents stripped and returns every token,
// including short ones and stop words.
func RawTokens(s string) []string {
	return strings.Fields(NormalizeTextStripped(s))
}

// KeyTokens is the index-side variant of Tokenize: stop words are removed
// and short tokens dropped, except that very short names (two tokens or
// fewer) keep their short tokens so names like "Li Na" stay searchable.
func KeyTokens(s string) []string {
	raw := RawTokens(s)
	var toks []string
	for _, t := range raw {
		if !stopWords[t] {
			toks = append(toks, t)
		}
	}
	if len(raw) <= 2 {
		return toks
	}
	out := toks[:0]
	for _, t := range toks {
		if utf8.RuneCountInString(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}

// Jaccard computes set similarity over two token slices. Duplicate tokens
// count once. Returns 0 when the union is empty.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	union := make(map[string]bool, len(a)+len(b))
	for t := range setA {
		union[t] = true
	}
	inter := 0
	seenB := make(map[string]bool, len(b))
	for _, t := range b {
		if seenB[t] {
			continue
		}
		seenB[t] = true
		union[t] = true
		if setA[t] {
			inter++
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}

