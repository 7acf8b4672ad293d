// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"card-program-wizard/internal/wizard/command"
	"card-program-wizard/internal/wizard/extract"
)

const CatalogVersion = "1.0.0"

func LoadRegistry(path string) (*QuestionCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat QuestionCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return &cat, nil
}

// Save writes the catalog as indented JSON and stamps LastUpdated.
func (c *QuestionCatalog) Save(path string) error {
	c.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate checks that steps run 1..n without gaps, fields are unique, and
// every question is answerable by the extractor.
func (c *QuestionCatalog) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("catalog version is required")
	}
	if len(c.Questions) == 0 {
		return fmt.Errorf("catalog has no questions")
	}

	fields := make(map[string]bool, len(c.Questions))
	for i, q := range c.Questions {
		if q.Step != i+1 {
			return fmt.Errorf("question %q: expected step %d, got %d", q.Field, i+1, q.Step)
		}
		if q.Field == "" {
			return fmt.Errorf("step %d: field is required", q.Step)
		}
		if fields[q.Field] {
			return fmt.Errorf("duplicate field %q", q.Field)
		}
		fields[q.Field] = true

		eq := q.Extract()
		switch eq.Type {
		case extract.TypeNumber, extract.TypeText, extract.TypeOpenText:
		case extract.TypeSelect, extract.TypeMultipleChoice, extract.TypeMultiSelect, extract.TypeMultiSelectAlt:
			if len(q.Options) == 0 {
				return fmt.Errorf("question %q: %s requires options", q.Field, q.Type)
			}
			seen := make(map[string]bool, len(q.Options))
			for _, opt := range q.Options {
				key := strings.ToLower(opt)
				if seen[key] {
					return fmt.Errorf("question %q: duplicate option %q", q.Field, opt)
				}
				seen[key] = true
			}
		default:
			return fmt.Errorf("question %q: unknown type %q", q.Field, q.Type)
		}

		if q.MinLength != nil && q.MaxLength != nil && *q.MinLength > *q.MaxLength {
			return fmt.Errorf("question %q: minLength exceeds maxLength", q.Field)
		}
	}
	return nil
}

func (c *QuestionCatalog) QuestionByStep(step int) (Question, bool) {
	for _, q := range c.Questions {
		if q.Step == step {
			return q, true
		}
	}
	return Question{}, false
}

// QuestionByField matches the field name exactly, then ignoring case and
// the difference between snake_case and camelCase.
func (c *QuestionCatalog) QuestionByField(field string) (Question, bool) {
	for _, q := range c.Questions {
		if q.Field == field {
			return q, true
		}
	}
	want := foldField(field)
	for _, q := range c.Questions {
		if foldField(q.Field) == want {
			return q, true
		}
	}
	return Question{}, false
}

func foldField(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

// Extract converts the catalog entry into the extractor's question shape.
func (q Question) Extract() extract.Question {
	return extract.Question{
		Field:     q.Field,
		Question:  q.Question,
		Type:      extract.QuestionType(q.Type),
		Options:   append([]string(nil), q.Options...),
		MinLength: q.MinLength,
		MaxLength: q.MaxLength,
	}
}

// Default returns the built-in card program wizard.
func Default() *QuestionCatalog {
	cat := &QuestionCatalog{
		Version:     CatalogVersion,
		LastUpdated: "2025-01-15T00:00:00Z",
		Questions: []Question{
			{
				Step:        1,
				Field:       "program_name",
				Question:    "What would you like to name your card program?",
				Type:        string(extract.TypeText),
				MinLength:   extract.IntPtr(3),
				MaxLength:   extract.IntPtr(100),
				Required:    true,
				Placeholder: "e.g. Acme Travel Cards",
			},
			{
				Step:     2,
				Field:    "program_type",
				Question: "What type of program is this?",
				Type:     string(extract.TypeSelect),
				Options:  []string{"corporate", "fleet", "meal", "travel", "gift", "transport", "healthcare", "education"},
				Required: true,
			},
			{
				Step:     3,
				Field:    "funding_model",
				Question: "How will the cards be funded?",
				Type:     string(extract.TypeSelect),
				Options:  []string{"prepaid", "debit", "credit", "charge", "hybrid"},
				Required: true,
			},
			{
				Step:     4,
				Field:    "form_factor",
				Question: "Which form factors do you need? You can pick more than one.",
				Type:     string(extract.TypeMultiSelect),
				Options:  []string{"physical", "virtual", "tokenized"},
				Required: true,
			},
			{
				Step:     5,
				Field:    "card_scheme",
				Question: "Which card scheme would you like?",
				Type:     string(extract.TypeSelect),
				Options:  []string{"Visa", "Mastercard", "American Express", "Discover", "UnionPay", "JCB"},
				Required: true,
			},
			{
				Step:     6,
				Field:    "currency",
				Question: "Which currency should the program use?",
				Type:     string(extract.TypeSelect),
				Options:  []string{"EUR", "USD", "GBP", "CHF", "SEK", "NOK", "DKK", "PLN", "CZK", "HUF"},
				Required: true,
			},
			{
				Step:     7,
				Field:    "estimated_cards",
				Question: "Roughly how many cards do you expect to issue?",
				Type:     string(extract.TypeNumber),
				Minimum:  extract.IntPtr(1),
				Required: true,
			},
			{
				Step:     8,
				Field:    "daily_limit",
				Question: "What should the daily spending limit per card be?",
				Type:     string(extract.TypeNumber),
				Minimum:  extract.IntPtr(0),
			},
			{
				Step:     9,
				Field:    "monthly_limit",
				Question: "And the monthly spending limit per card?",
				Type:     string(extract.TypeNumber),
				Minimum:  extract.IntPtr(0),
			},
		},
	}

	for i := range cat.Questions {
		cat.Questions[i].Help = command.FieldHelp(cat.Questions[i].Field)
	}
	return cat
}
