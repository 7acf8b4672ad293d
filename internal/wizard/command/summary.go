package command

import (
	"fmt"
	"strconv"
	"strings"
)

type summaryField struct {
	label      string
	keys       []string
	capitalize bool
}

// summaryFields lists what the summary shows, in wizard order. Keys cover
// both the chat UI's camelCase names and the API's snake_case names.
var summaryFields = []summaryField{
	{label: "Program Name", keys: []string{"name", "program_name", "programName"}},
	{label: "Program Type", keys: []string{"type", "program_type", "programType"}, capitalize: true},
	{label: "Funding Model", keys: []string{"fundingModel", "funding_model"}, capitalize: true},
	{label: "Form Factors", keys: []string{"formFactor", "formFactors", "form_factor", "form_factors"}},
	{label: "Card Scheme", keys: []string{"scheme", "card_scheme", "cardScheme"}},
	{label: "Currency", keys: []string{"currency"}},
	{label: "Estimated Cards", keys: []string{"estimatedCards", "estimated_cards"}},
	{label: "Daily Limit", keys: []string{"dailyLimit", "daily_limit"}},
	{label: "Monthly Limit", keys: []string{"monthlyLimit", "monthly_limit"}},
}

// GenerateSummary renders the answers collected so far.
func GenerateSummary(collected map[string]interface{}) string {
	var lines []string
	for _, f := range summaryFields {
		value, ok := lookup(collected, f.keys)
		if !ok {
			continue
		}
		text := formatValue(value)
		if f.capitalize {
			text = capitalize(text)
		}
		lines = append(lines, fmt.Sprintf("✅ %s: %s", f.label, text))
	}

	if len(lines) == 0 {
		return "We haven't collected any information yet. Let's get started!"
	}
	return "Here's what we have so far:\n\n" + strings.Join(lines, "\n") +
		"\n\nLet's continue with the remaining questions!"
}

func lookup(collected map[string]interface{}, keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := collected[k]; ok && present(v) {
			return v, true
		}
	}
	return nil, false
}

func present(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []string:
		return len(t) > 0
	case []interface{}:
		return len(t) > 0
	default:
		return true
	}
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []string:
		return strings.Join(t, ", ")
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
