// Package textnorm normalizes event names and city labels before any text
// comparison, so case, accents and punctuation never affect scoring.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent decomposes, drops combining marks, then recomposes.
var deaccent = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

var stopwords = map[string]struct{}{
	"de": {}, "du": {}, "des": {}, "la": {}, "le": {}, "les": {},
	"l": {}, "d": {}, "et": {}, "a": {}, "au": {}, "aux": {},
	"en": {}, "sur": {}, "sous": {}, "pour": {}, "par": {},
	"un": {}, "une": {}, "chez": {},
	"of": {}, "the": {}, "and": {}, "in": {},
}

var (
	// "2025", "3eme edition", "21e edition du", leading or trailing ordinals.
	yearRe            = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	editionRe         = regexp.MustCompile(`\b\d{1,3}\s*(?:e|eme|ere|re|nd|nde|rd|st|th)?\s*edition\b`)
	leadingOrdinalRe  = regexp.MustCompile(`^\d{1,3}(?:e|eme|ere|re|nd|nde|rd|st|th)\b`)
	trailingOrdinalRe = regexp.MustCompile(`\b\d{1,3}(?:e|eme|ere|re|nd|nde|rd|st|th)$`)
	cedexRe           = regexp.MustCompile(`\bcedex(\s+\d+)?\b`)
)

// NormalizeString lowercases, strips accents and punctuation, and collapses
// whitespace. Idempotent.
func NormalizeString(s string) string {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	if trimmed == "" {
		return ""
	}

	folded, _, err := transform.String(deaccent, trimmed)
	if err != nil {
		folded = trimmed
	}

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeCity normalizes a city label and canonicalizes the usual French
// variants: Saint/Sainte/St/Ste prefixes collapse to "saint" and postal
// suffixes like "Cedex 15" are dropped, so "Saint-Étienne" and "St Etienne"
// compare equal.
func NormalizeCity(s string) string {
	normalized := NormalizeString(s)
	if normalized == "" {
		return ""
	}

	normalized = strings.TrimSpace(cedexRe.ReplaceAllString(normalized, " "))

	words := strings.Fields(normalized)
	for i, word := range words {
		switch word {
		case "st", "ste", "sainte":
			words[i] = "saint"
		}
	}
	return strings.Join(words, " ")
}

// RemoveEditionNumber strips years and edition ordinals ("2025",
// "3eme edition", trailing "10e") from an already-normalized event name.
func RemoveEditionNumber(name string) string {
	cleaned := editionRe.ReplaceAllString(name, " ")
	cleaned = yearRe.ReplaceAllString(cleaned, " ")
	cleaned = leadingOrdinalRe.ReplaceAllString(cleaned, " ")
	cleaned = trailingOrdinalRe.ReplaceAllString(cleaned, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// RemoveStopwords drops connector words from a normalized name.
func RemoveStopwords(text string) string {
	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if _, isStop := stopwords[word]; isStop {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// KeywordSet returns the significant keyword set of an event name: normalized,
// edition numbers stripped, stop-words removed, short tokens dropped.
func KeywordSet(name string) map[string]struct{} {
	keywords := Keywords(name)
	if len(keywords) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(keywords))
	for _, keyword := range keywords {
		set[keyword] = struct{}{}
	}
	return set
}

// Keywords returns the significant keywords of an event name in order of
// decreasing length, deduplicated.
func Keywords(name string) []string {
	cleaned := RemoveStopwords(RemoveEditionNumber(NormalizeString(name)))
	if cleaned == "" {
		return nil
	}

	words := strings.Fields(cleaned)
	seen := make(map[string]struct{}, len(words))
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		if len([]rune(word)) < 3 {
			continue
		}
		if _, exists := seen[word]; exists {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}

	// Longest first; stable so equal-length keywords keep name order.
	for i := 1; i < len(keywords); i++ {
		for j := i; j > 0 && len([]rune(keywords[j])) > len([]rune(keywords[j-1])); j-- {
			keywords[j], keywords[j-1] = keywords[j-1], keywords[j]
		}
	}
	return keywords
}

// TopKeywords returns at most n significant keywords.
func TopKeywords(name string, n int) []string {
	keywords := Keywords(name)
	if n <= 0 || len(keywords) <= n {
		return keywords
	}
	return keywords[:n]
}
