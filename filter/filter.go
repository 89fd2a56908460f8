// Package filter drops boilerplate phrases that Whisper-family models emit
// when they are fed audio with no speech in it.
package filter

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultPhrases are the known hallucinations on silent Russian audio. The
// leading space is part of the model output and part of the match.
var DefaultPhrases = []string{
	" Продолжение следует...",
	" Субтитры создавал DimaTorzok",
	" Субтитры сделал DimaTorzok",
}

// Default is the phrase set used by the package level Filter.
var Default = New(DefaultPhrases...)

// Set is an immutable set of filler phrases. Matching is exact equality
// against the whole transcript unless a fuzzy threshold is set.
type Set struct {
	phrases   map[string]struct{}
	threshold float64
}

// New builds a set from the given phrases. Empty strings are ignored.
func New(phrases ...string) *Set {
	s := &Set{phrases: make(map[string]struct{}, len(phrases))}
	for _, p := range phrases {
		if p == "" {
			continue
		}
		s.phrases[p] = struct{}{}
	}
	return s
}

// With returns a new set holding the phrases of s plus the extra ones.
func (s *Set) With(extra ...string) *Set {
	all := make([]string, 0, len(s.phrases)+len(extra))
	for p := range s.phrases {
		all = append(all, p)
	}
	out := New(append(all, extra...)...)
	out.threshold = s.threshold
	return out
}

// Fuzzy returns a copy of s that also matches transcripts whose similarity
// to a phrase is at least threshold, in (0, 1]. Similarity is one minus the
// Levenshtein distance over the longer length, compared case-insensitively
// with surrounding space trimmed. A threshold of 0 keeps exact matching.
func (s *Set) Fuzzy(threshold float64) *Set {
	out := s.With()
	out.threshold = threshold
	return out
}

// Contains reports whether text is one of the filler phrases.
func (s *Set) Contains(text string) bool {
	if _, ok := s.phrases[text]; ok {
		return true
	}
	if s.threshold <= 0 {
		return false
	}

	normalized := normalize(text)
	if normalized == "" {
		return false
	}
	for p := range s.phrases {
		if similarity(normalized, normalize(p)) >= s.threshold {
			return true
		}
	}
	return false
}

// Filter returns "" when text is a filler phrase and text otherwise.
func (s *Set) Filter(text string) string {
	if s.Contains(text) {
		return ""
	}
	return text
}

// Len returns the number of phrases in the set.
func (s *Set) Len() int {
	return len(s.phrases)
}

// Filter applies the Default set.
func Filter(text string) string {
	return Default.Filter(text)
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// similarity returns 1 for equal strings and approaches 0 as they diverge.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}
