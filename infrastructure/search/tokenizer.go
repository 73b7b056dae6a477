// Package search implements the dual retrieval index: an in-process BM25
// keyword index and a database-backed vector store.
package search

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// stopwords is a fixed English list. Tokens in it never reach the index or
// the query, keeping both sides of the match symmetric.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {}, "such": {},
	"that": {}, "the": {}, "their": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "to": {}, "was": {}, "will": {}, "with": {},
}

// Tokenizer normalises text for indexing and querying: split on
// non-alphanumeric runs and camel-case boundaries, lower-case, drop
// stopwords, snowball-stem the rest. Index and query paths share one
// Tokenizer so the transforms always agree and natural-language queries
// match camelCase identifiers.
type Tokenizer struct{}

// NewTokenizer creates a Tokenizer.
func NewTokenizer() Tokenizer {
	return Tokenizer{}
}

// Tokenize splits and normalises text into index terms.
func (t Tokenizer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		for _, word := range splitIdentifier(field) {
			word = strings.ToLower(word)
			if _, ok := stopwords[word]; ok {
				continue
			}
			stemmed := english.Stem(word, false)
			if stemmed == "" {
				stemmed = word
			}
			terms = append(terms, stemmed)
		}
	}
	return terms
}

// splitIdentifier breaks a camelCase or PascalCase word into its parts. A
// run of capitals stays together up to the last capital before a lowercase
// letter, so HTTPServer splits into HTTP and Server.
func splitIdentifier(s string) []string {
	runes := []rune(s)
	if len(runes) < 2 {
		return []string{s}
	}

	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := unicode.IsLower(prev) && unicode.IsUpper(cur) ||
			unicode.IsUpper(prev) && unicode.IsUpper(cur) &&
				i+1 < len(runes) && unicode.IsLower(runes[i+1])
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}
