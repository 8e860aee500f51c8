// Package tokens estimates token usage and cost for stored conversations.
// Estimates are approximate by construction; exact counts would need the
// model's own tokenizer, which is not available here.
package tokens

import (
	"strings"
	"unicode"
)

// Counter estimates the token count of a text. Implementations never fail
// and always return a non-negative count.
type Counter interface {
	Count(text string) int
}

// HeuristicCounter weighs word runs and punctuation: each word contributes
// one token plus one per seven extra runes, each punctuation or symbol rune
// contributes one.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int {
	total := 0
	run := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			run++
			continue
		}
		if run > 0 {
			total += 1 + run/7
			run = 0
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			total++
		}
	}
	if run > 0 {
		total += 1 + run/7
	}
	return total
}

// FlatCounter is the four-runes-per-token approximation, minimum one token
// for non-blank text.
type FlatCounter struct{}

func (FlatCounter) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	n := len([]rune(text)) / 4
	if n < 1 {
		return 1
	}
	return n
}

// ChainCounter tries each tier in order and returns the first positive
// count.
type ChainCounter []Counter

func (c ChainCounter) Count(text string) int {
	for _, tier := range c {
		if n := tier.Count(text); n > 0 {
			return n
		}
	}
	return 0
}

// DefaultCounter is the standard tier chain.
func DefaultCounter() Counter {
	return ChainCounter{HeuristicCounter{}, FlatCounter{}}
}
