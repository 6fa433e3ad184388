package gatekeeper

import (
	"strings"
	"unicode/utf16"
)

// Browser-side text rules count UTF-16 code units, so every length and ratio
// in this package is computed over the UTF-16 encoding of the input.

func codeUnits(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// isSpaceUnit matches the ECMAScript \s class.
func isSpaceUnit(u uint16) bool {
	switch u {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		0x00a0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return u >= 0x2000 && u <= 0x200a
}

func isSpaceRune(r rune) bool {
	if r > 0xffff {
		return false
	}
	return isSpaceUnit(uint16(r))
}

// isLineTerminator matches the units "." refuses to match.
func isLineTerminator(u uint16) bool {
	return u == '\n' || u == '\r' || u == 0x2028 || u == 0x2029
}

func isASCIILetter(u uint16) bool {
	return (u >= 'a' && u <= 'z') || (u >= 'A' && u <= 'Z')
}

func isASCIIUpper(u uint16) bool {
	return u >= 'A' && u <= 'Z'
}

func isASCIIDigit(u uint16) bool {
	return u >= '0' && u <= '9'
}

const vowelSet = "aeiouAEIOUáéíóúýäëïöüÁÉÍÓÚÝ"

func isVowel(u uint16) bool {
	return strings.ContainsRune(vowelSet, rune(u))
}

// trimSpace strips leading and trailing \s characters.
func trimSpace(s string) string {
	return strings.TrimFunc(s, isSpaceRune)
}

// wordCount returns the number of tokens produced by splitting the trimmed
// text on runs of whitespace. Empty text counts as a single empty token.
func wordCount(s string) int {
	fields := strings.FieldsFunc(trimSpace(s), isSpaceRune)
	if len(fields) == 0 {
		return 1
	}
	return len(fields)
}

// hasRepeatedRun reports whether some chunk of minLen..maxLen units appears at
// least repeats times back to back. Chunks may not contain line terminators.
func hasRepeatedRun(units []uint16, minLen, maxLen, repeats int) bool {
	for size := minLen; size <= maxLen; size++ {
		span := size * repeats
		for start := 0; start+span <= len(units); start++ {
			if repeatsAt(units, start, size, repeats) {
				return true
			}
		}
	}
	return false
}

func repeatsAt(units []uint16, start, size, repeats int) bool {
	for i := 0; i < size; i++ {
		if isLineTerminator(units[start+i]) {
			return false
		}
	}
	for r := 1; r < repeats; r++ {
		offset := start + r*size
		for i := 0; i < size; i++ {
			if units[offset+i] != units[start+i] {
				return false
			}
		}
	}
	return true
}
