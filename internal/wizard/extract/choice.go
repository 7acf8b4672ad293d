package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	confidenceExact    = 1.0
	confidenceLocation = 0.9
	confidencePartial  = 0.9
	confidenceTypo     = 0.85
	confidenceKeyword  = 0.9

	maxTypoDistance = 2
)

func (e *Extractor) extractChoice(q Question, answer string) Result {
	input := Normalize(answer)
	if input == "" || len(q.Options) == 0 {
		return e.choiceFailure(q, input, choiceFailureTemplates)
	}

	if q.IsCurrencyField() {
		if opt, ok := matchLocation(q, input); ok {
			return matched(opt, confidenceLocation, fmt.Sprintf("Based on your location, I'll set the currency to %s.", opt))
		}
	}

	if opt, ok := q.CanonicalOption(input); ok {
		return matched(opt, confidenceExact, fmt.Sprintf("Perfect, %s it is.", opt))
	}

	if opt, ok := matchPartial(q.Options, input); ok {
		return matched(opt, confidencePartial, fmt.Sprintf("Got it, %s.", opt))
	}

	if opt, ok := matchTypo(q.Options, input); ok {
		return matched(opt, confidenceTypo, fmt.Sprintf("I think you meant %s. I've selected that for you.", opt))
	}

	if opt, ok := matchKeyword(q.Options, input); ok {
		return matched(opt, confidenceKeyword, fmt.Sprintf("Got it, %s.", opt))
	}

	return e.choiceFailure(q, input, choiceFailureTemplates)
}

func matchLocation(q Question, input string) (string, bool) {
	for _, loc := range currencyLocations {
		opt, ok := q.CanonicalOption(loc.Currency)
		if !ok {
			continue
		}
		for _, place := range loc.Places {
			if ContainsPhrase(input, place) {
				return opt, true
			}
		}
	}
	return "", false
}

// matchPartial accepts an option when the input is a prefix or fragment
// covering at least half the option, or when the input names the option
// as a whole word.
func matchPartial(options []string, input string) (string, bool) {
	inputLen := utf8.RuneCountInString(input)
	for _, opt := range options {
		o := Normalize(opt)
		if o == "" {
			continue
		}
		if strings.Contains(o, input) && 2*inputLen >= utf8.RuneCountInString(o) {
			return opt, true
		}
		if ContainsPhrase(input, o) {
			return opt, true
		}
	}
	return "", false
}

// matchTypo returns the nearest option within maxTypoDistance edits. The
// distance may not exceed half the option length, so three-letter codes
// like "SEK" only accept a single edit.
func matchTypo(options []string, input string) (string, bool) {
	best, bestDist := "", maxTypoDistance+1
	for _, opt := range options {
		o := Normalize(opt)
		d := Levenshtein(input, o)
		if d > maxTypoDistance || 2*d > utf8.RuneCountInString(o) {
			continue
		}
		if d < bestDist {
			best, bestDist = opt, d
		}
	}
	return best, best != ""
}

func matchKeyword(options []string, input string) (string, bool) {
	for _, entry := range keywordTable {
		opt, ok := Question{Options: options}.CanonicalOption(entry.Canonical)
		if !ok {
			continue
		}
		for _, kw := range entry.Keywords {
			if ContainsPhrase(input, kw) {
				return opt, true
			}
		}
	}
	return "", false
}
