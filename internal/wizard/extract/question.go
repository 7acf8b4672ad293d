// Package extract turns free-text wizard answers into structured field values.
//
// Extraction is rule based and pure: the same question and answer always
// produce the same Result, and nothing here performs I/O.
package extract

import "strings"

type QuestionType string

const (
	TypeNumber         QuestionType = "number"
	TypeSelect         QuestionType = "select"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeMultiSelect    QuestionType = "multiselect"
	TypeMultiSelectAlt QuestionType = "multi_select"
	TypeText           QuestionType = "text"
	TypeOpenText       QuestionType = "open_text"
)

// Question describes one wizard step as the caller sees it.
type Question struct {
	Field     string       `json:"field"`
	Question  string       `json:"question,omitempty"`
	Type      QuestionType `json:"type"`
	Options   []string     `json:"options,omitempty"`
	MinLength *int         `json:"minLength,omitempty"`
	MaxLength *int         `json:"maxLength,omitempty"`
}

// IsCurrencyField reports whether location names should be mapped to currency codes.
func (q Question) IsCurrencyField() bool {
	return strings.Contains(strings.ToLower(q.Field), "currency")
}

// IsChoice reports whether answers must come from Options.
func (q Question) IsChoice() bool {
	switch q.Type {
	case TypeSelect, TypeMultipleChoice, TypeMultiSelect, TypeMultiSelectAlt:
		return true
	}
	return false
}

// IsMulti reports whether the question accepts several options.
func (q Question) IsMulti() bool {
	return q.Type == TypeMultiSelect || q.Type == TypeMultiSelectAlt
}

// HasOption reports whether value is one of the declared options, ignoring case.
func (q Question) HasOption(value string) bool {
	_, ok := q.CanonicalOption(value)
	return ok
}

// CanonicalOption returns the declared spelling of value when it is one of
// the options, ignoring case and spacing.
func (q Question) CanonicalOption(value string) (string, bool) {
	v := Normalize(value)
	for _, opt := range q.Options {
		if Normalize(opt) == v {
			return opt, true
		}
	}
	return "", false
}

// Result is the outcome of interpreting one answer against one question.
type Result struct {
	Validated             bool        `json:"validated"`
	ExtractedValue        interface{} `json:"extracted_value,omitempty"`
	Confidence            float64     `json:"confidence"`
	AIResponse            string      `json:"ai_response"`
	RequiresClarification bool        `json:"requires_clarification"`
	Suggestions           []string    `json:"suggestions,omitempty"`
}

// IntPtr is a convenience for the optional length bounds.
func IntPtr(v int) *int {
	return &v
}
