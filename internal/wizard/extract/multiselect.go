package extract

import (
	"fmt"
	"strings"
)

const (
	confidenceAll   = 0.95
	confidenceMulti = 0.9
)

var allPhrases = []string{"all", "everything", "every option", "every one", "each of them", "the lot"}

func (e *Extractor) extractMulti(q Question, answer string) Result {
	input := Normalize(answer)
	if input == "" || len(q.Options) == 0 {
		return e.choiceFailure(q, input, multiFailureTemplates)
	}

	for _, phrase := range allPhrases {
		if ContainsPhrase(input, phrase) {
			all := append([]string(nil), q.Options...)
			return matched(all, confidenceAll, fmt.Sprintf("Great, I've selected all of them: %s.", strings.Join(all, ", ")))
		}
	}

	var found []string
	for _, token := range strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ';' }) {
		found = appendUnique(found, matchOptions(q.Options, strings.TrimSpace(token))...)
	}

	if len(found) == 0 && (ContainsPhrase(input, "both") || ContainsPhrase(input, "and")) {
		if ContainsPhrase(input, "both") && len(q.Options) == 2 {
			found = append(found, q.Options...)
		} else {
			found = matchOptions(q.Options, input)
		}
	}

	if len(found) == 0 {
		return e.choiceFailure(q, input, multiFailureTemplates)
	}
	return matched(found, confidenceMulti, fmt.Sprintf("Got it: %s.", strings.Join(found, ", ")))
}

// matchOptions returns every option named in text, either by its label or by
// one of its keywords, in option order.
func matchOptions(options []string, text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, opt := range options {
		if ContainsPhrase(text, Normalize(opt)) {
			out = append(out, opt)
			continue
		}
		for _, kw := range keywordsFor(opt) {
			if ContainsPhrase(text, kw) {
				out = append(out, opt)
				break
			}
		}
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, existing := range dst {
			if existing == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
