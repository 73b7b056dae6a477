package search

import (
	"fmt"
	"unicode/utf8"
)

// DefaultBudgetChars approximates an 8 192-token budget at ~2 chars/token,
// conservative for OpenAI-style embedding models.
const DefaultBudgetChars = 16000

// TokenBudget splits embedding work into provider-sized batches: each batch's
// total truncated text stays within a character budget and an optional
// document-count cap. A document that alone exceeds the budget travels alone,
// truncated.
type TokenBudget struct {
	maxChars     int
	maxBatchSize int
}

// NewTokenBudget creates a budget of maxChars characters per batch.
func NewTokenBudget(maxChars int) (TokenBudget, error) {
	if maxChars <= 0 {
		return TokenBudget{}, fmt.Errorf("token budget must be positive, got %d", maxChars)
	}
	return TokenBudget{maxChars: maxChars}, nil
}

// DefaultTokenBudget returns the conservative default budget.
func DefaultTokenBudget() TokenBudget {
	b, _ := NewTokenBudget(DefaultBudgetChars)
	return b
}

// WithMaxBatchSize returns a copy capped at n documents per batch; zero or
// negative removes the cap.
func (b TokenBudget) WithMaxBatchSize(n int) TokenBudget {
	if n < 0 {
		n = 0
	}
	b.maxBatchSize = n
	return b
}

// MaxChars returns the per-batch character budget.
func (b TokenBudget) MaxChars() int { return b.maxChars }

// Truncate caps text to the budget, counted in runes.
func (b TokenBudget) Truncate(text string) string {
	if utf8.RuneCountInString(text) <= b.maxChars {
		return text
	}
	return string([]rune(text)[:b.maxChars])
}

// Batches partitions documents in order. Order within and across batches is
// preserved.
func (b TokenBudget) Batches(documents []Document) [][]Document {
	if len(documents) == 0 {
		return nil
	}

	var batches [][]Document
	for i := 0; i < len(documents); {
		start := i
		chars := 0
		for i < len(documents) {
			if b.maxBatchSize > 0 && i-start >= b.maxBatchSize {
				break
			}
			size := min(utf8.RuneCountInString(documents[i].Text()), b.maxChars)
			if chars+size > b.maxChars && i > start {
				break
			}
			chars += size
			i++
		}
		batch := make([]Document, i-start)
		copy(batch, documents[start:i])
		batches = append(batches, batch)
	}
	return batches
}
