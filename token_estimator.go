package imagine

import (
	"math"
	"unicode/utf8"
)

// TokenEstimator estimates the prompt tokens a request will consume.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// SimpleTokenEstimator approximates tokens as a quarter of the rune count,
// scaled by SafetyMargin.
type SimpleTokenEstimator struct {
	SafetyMargin float64
}

func NewSimpleTokenEstimator() *SimpleTokenEstimator {
	return &SimpleTokenEstimator{
		SafetyMargin: 1.2,
	}
}

func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	estimate := float64(utf8.RuneCountInString(text)) / 4.0 * e.SafetyMargin
	return int(math.Ceil(estimate)) + 3
}
