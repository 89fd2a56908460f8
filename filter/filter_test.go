package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "continuation filler", input: " Продолжение следует...", expected: ""},
		{name: "subtitles created filler", input: " Субтитры создавал DimaTorzok", expected: ""},
		{name: "subtitles made filler", input: " Субтитры сделал DimaTorzok", expected: ""},
		{name: "filler without leading space is kept", input: "Продолжение следует...", expected: "Продолжение следует..."},
		{name: "filler inside longer text is kept", input: " Привет. Продолжение следует...", expected: " Привет. Продолжение следует..."},
		{name: "regular speech", input: " привет мир", expected: " привет мир"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Filter(tt.input))
		})
	}
}

func TestFilter_Idempotent(t *testing.T) {
	inputs := append([]string{"", " ", "hello", " привет  мир", "Субтитры"}, DefaultPhrases...)
	for _, in := range inputs {
		once := Filter(in)
		assert.Equal(t, once, Filter(once), "input %q", in)
	}
}

func TestFilter_EmptyOnlyForPhrases(t *testing.T) {
	for _, p := range DefaultPhrases {
		assert.True(t, Default.Contains(p))
		assert.Empty(t, Filter(p))
	}
	for _, in := range []string{" ", "a", " Продолжение следует.."} {
		assert.False(t, Default.Contains(in))
		assert.NotEmpty(t, Filter(in))
	}
}

func TestSet_With(t *testing.T) {
	base := New("one")
	extended := base.With("two", "")

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, extended.Len())
	assert.Equal(t, "two", base.Filter("two"))
	assert.Empty(t, extended.Filter("two"))
	assert.Empty(t, extended.Filter("one"))
}

func TestSet_Fuzzy(t *testing.T) {
	set := Default.Fuzzy(0.85)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "exact filler", input: " Продолжение следует...", expected: ""},
		{name: "different ellipsis", input: " Продолжение следует…", expected: ""},
		{name: "different case and no leading space", input: "продолжение следует...", expected: ""},
		{name: "misspelled author", input: " Субтитры сделал DimaTorzokk", expected: ""},
		{name: "regular speech", input: " Продолжим завтра.", expected: " Продолжим завтра."},
		{name: "empty stays empty", input: "", expected: ""},
		{name: "whitespace is not filler", input: "   ", expected: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, set.Filter(tt.input))
		})
	}

	// Default itself is unchanged.
	assert.Equal(t, "продолжение следует...", Default.Filter("продолжение следует..."))
}

func TestSet_FuzzySurvivesWith(t *testing.T) {
	set := Default.Fuzzy(0.9).With(" Спасибо за просмотр!")
	assert.Equal(t, "", set.Filter("спасибо за просмотр!"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("абв", "абв"))
	assert.Equal(t, 0.0, similarity("", "абв"))
	// One substitution in three runes.
	assert.InDelta(t, 2.0/3.0, similarity("абв", "абг"), 1e-9)
	assert.InDelta(t, 0.5, similarity("ab", "a"), 1e-9)
}
