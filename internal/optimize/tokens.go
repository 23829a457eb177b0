// ABOUTME: Token count estimation and budget checks for serialized tool results
// ABOUTME: Uses a characters-per-token heuristic; no tokenizer is involved

package optimize

import "unicode/utf8"

// Defaults for Budget.
const (
	DefaultMaxTokens     = 150000
	DefaultCharsPerToken = 4
)

const oversizeSuggestion = "Consider using pagination (lower limit), summarization, or specific filters to reduce data size"

// Budget bounds the estimated size of one response.
type Budget struct {
	MaxTokens     int
	CharsPerToken int
}

// TokenCheck is the outcome of Budget.Check.
type TokenCheck struct {
	EstimatedTokens int    `json:"estimatedTokens"`
	ExceedsLimit    bool   `json:"exceedsLimit"`
	Suggestion      string `json:"suggestion,omitempty"`
}

func (b Budget) withDefaults() Budget {
	if b.MaxTokens <= 0 {
		b.MaxTokens = DefaultMaxTokens
	}
	if b.CharsPerToken <= 0 {
		b.CharsPerToken = DefaultCharsPerToken
	}
	return b
}

// Estimate returns ceil(characters / CharsPerToken).
func (b Budget) Estimate(text string) int {
	b = b.withDefaults()
	n := utf8.RuneCountInString(text)
	return (n + b.CharsPerToken - 1) / b.CharsPerToken
}

// Check estimates text and reports whether it exceeds MaxTokens.
func (b Budget) Check(text string) TokenCheck {
	b = b.withDefaults()
	estimated := b.Estimate(text)
	check := TokenCheck{EstimatedTokens: estimated, ExceedsLimit: estimated > b.MaxTokens}
	if check.ExceedsLimit {
		check.Suggestion = oversizeSuggestion
	}
	return check
}

// EstimateTokens estimates text with the default budget.
func EstimateTokens(text string) int {
	return Budget{}.Estimate(text)
}
