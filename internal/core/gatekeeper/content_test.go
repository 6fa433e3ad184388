package gatekeeper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSpamContent(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{name: "empty", text: "", want: true},
		{name: "short", text: "ab", want: true},
		{name: "short after trim", text: "  ab \t", want: true},
		{name: "short name", text: "Jo", want: true},
		{name: "greeting", text: "Hello there friend", want: false},
		{name: "sentence", text: "I would like to discuss a project with your team next week.", want: false},
		{name: "punctuation", text: "!!!!!!!!!", want: true},
		{name: "shouting", text: "AAAAAAAAAA", want: true},
		{name: "vowel run", text: "aaaaaaaaaa", want: true},
		{name: "consonants", text: "qwrtpsdfgh klmnb", want: true},
		{name: "newlines are not repeated chars", text: "hello\n\n\nthere friend", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsSpamContent(tc.text))
		})
	}
}

func TestSpamSignals(t *testing.T) {
	require.Equal(t, []string{SignalUppercase}, SpamSignals("HELLO THERE friend"))
	require.Equal(t, []string{SignalNoSpaces}, SpamSignals("Thisisaverylongwordwithoutspaces"))
	require.Equal(t, []string{SignalRepeatedPattern}, SpamSignals("hello abababab there"))
	require.Empty(t, SpamSignals("Hello there friend"))

	signals := SpamSignals("!!!!!!!!!")
	require.Contains(t, signals, SignalSpecialChars)
	require.Contains(t, signals, SignalFewVowels)
	require.Contains(t, signals, SignalRepeatedChar)
	require.Contains(t, signals, SignalRepeatedPattern)

	require.Equal(t, []string{SignalTooShort}, SpamSignals(""))
}

func TestHasRepeatedRun(t *testing.T) {
	require.True(t, hasRepeatedRun(codeUnits("xaaay"), 1, 1, 3))
	require.False(t, hasRepeatedRun(codeUnits("xaay"), 1, 1, 3))
	require.True(t, hasRepeatedRun(codeUnits("klklkl.com"), 2, 3, 3))
	require.True(t, hasRepeatedRun(codeUnits("abcabcabc"), 2, 3, 3))
	require.False(t, hasRepeatedRun(codeUnits("abcabc"), 2, 3, 3))
	require.False(t, hasRepeatedRun(codeUnits("\r\r\r"), 1, 1, 3))
	require.False(t, hasRepeatedRun(nil, 1, 1, 3))
}

func TestLengthsCountUTF16Units(t *testing.T) {
	// A single astral symbol is two units, still under the minimum of three.
	require.True(t, IsSpamContent("😀"))
	require.Len(t, codeUnits("😀a"), 3)
}

func TestWordCount(t *testing.T) {
	require.Equal(t, 1, wordCount(""))
	require.Equal(t, 1, wordCount("   "))
	require.Equal(t, 3, wordCount(" one two\tthree "))
}
