package gatekeeper

// Content signal names reported by SpamSignals.
const (
	SignalTooShort        = "too_short"
	SignalSpecialChars    = "special_chars"
	SignalFewVowels       = "few_vowels"
	SignalManyVowels      = "many_vowels"
	SignalUppercase       = "uppercase"
	SignalRepeatedChar    = "repeated_char"
	SignalNoSpaces        = "no_spaces"
	SignalRepeatedPattern = "repeated_pattern"
)

const (
	minTrimmedLength   = 3
	maxSpecialRatio    = 0.4
	minVowelRatio      = 0.2
	maxVowelRatio      = 0.6
	maxUppercaseRatio  = 0.5
	longTextThreshold  = 20
	minWordsInLongText = 3
)

// IsSpamContent reports whether text looks machine generated.
func IsSpamContent(text string) bool {
	return len(contentSignals(text, true)) > 0
}

// SpamSignals returns every content rule text trips, in evaluation order.
func SpamSignals(text string) []string {
	return contentSignals(text, false)
}

func contentSignals(text string, firstOnly bool) []string {
	var signals []string
	hit := func(name string) bool {
		signals = append(signals, name)
		return firstOnly
	}

	if len(codeUnits(trimSpace(text))) < minTrimmedLength {
		if hit(SignalTooShort) {
			return signals
		}
	}

	units := codeUnits(text)
	length := float64(len(units))

	var special, vowels, upper, letters int
	for _, u := range units {
		if !isASCIILetter(u) && !isASCIIDigit(u) && !isSpaceUnit(u) {
			special++
		}
		if isVowel(u) {
			vowels++
		}
		if isASCIILetter(u) {
			letters++
			if isASCIIUpper(u) {
				upper++
			}
		}
	}

	if length > 0 {
		if float64(special)/length > maxSpecialRatio && hit(SignalSpecialChars) {
			return signals
		}
		vowelRatio := float64(vowels) / length
		if vowelRatio < minVowelRatio && hit(SignalFewVowels) {
			return signals
		}
		if vowelRatio > maxVowelRatio && hit(SignalManyVowels) {
			return signals
		}
	}
	if letters > 0 && float64(upper)/float64(letters) > maxUppercaseRatio && hit(SignalUppercase) {
		return signals
	}
	if hasRepeatedRun(units, 1, 1, 3) && hit(SignalRepeatedChar) {
		return signals
	}
	if len(units) > longTextThreshold && wordCount(text) < minWordsInLongText && hit(SignalNoSpaces) {
		return signals
	}
	if hasRepeatedRun(units, 2, 3, 4) && hit(SignalRepeatedPattern) {
		return signals
	}
	return signals
}
