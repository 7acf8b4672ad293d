package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func extractText(q Question, answer string) Result {
	length := utf8.RuneCountInString(strings.TrimSpace(answer))

	if q.MinLength != nil && length < *q.MinLength {
		return Result{
			Validated:             false,
			AIResponse:            fmt.Sprintf("That's a bit short. Please use at least %d characters.", *q.MinLength),
			RequiresClarification: true,
		}
	}
	if q.MaxLength != nil && length > *q.MaxLength {
		return Result{
			Validated:             false,
			AIResponse:            fmt.Sprintf("That's a bit long. Please keep it to at most %d characters.", *q.MaxLength),
			RequiresClarification: true,
		}
	}

	return matched(answer, confidenceExact, fmt.Sprintf("Great, I've noted %q.", strings.TrimSpace(answer)))
}
