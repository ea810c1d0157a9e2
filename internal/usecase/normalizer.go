package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex patterns for performance
var (
	nonWordRegex        = regexp.MustCompile(`[^\w\s]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// MaxKeywords bounds the number of keywords extracted per product name.
const MaxKeywords = 5

// stopWords are excluded from extracted keywords
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true,
}

// Normalize converts a raw product name to its canonical comparable
// form: lowercase, punctuation stripped, whitespace collapsed. Empty
// input yields empty output. Idempotent.
func Normalize(name string) string {
	result := strings.ToLower(strings.TrimSpace(name))
	result = nonWordRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// ExtractKeywords returns up to MaxKeywords significant tokens from a
// product name, in original order. Tokens of length <= 2, stop words,
// and purely numeric tokens are dropped.
func ExtractKeywords(name string) []string {
	words := strings.Fields(strings.ToLower(name))

	var keywords []string
	for _, word := range words {
		if len(word) <= 2 {
			continue
		}
		if stopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == MaxKeywords {
			break
		}
	}

	return keywords
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
