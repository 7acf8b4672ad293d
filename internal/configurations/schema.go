package configurations

import (
	"context"
	"strings"

	"card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/common/validation"
)

const (
	SchemaVersion   = "1.0.0"
	schemaUpdatedAt = "2024-11-27"
)

type LookupOption struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Symbol      string `json:"symbol,omitempty"`
}

// LookupOptions holds the active rows of the option lookup tables.
type LookupOptions struct {
	CardSchemes   []LookupOption
	ProgramTypes  []LookupOption
	FundingModels []LookupOption
	FormFactors   []LookupOption
	Currencies    []LookupOption
	Statuses      []LookupOption
}

var fallbackOptions = map[string][]string{
	"card_schemes":   {"Visa", "Mastercard", "American Express", "Discover", "UnionPay", "JCB"},
	"program_types":  {"corporate", "fleet", "meal", "travel", "gift", "transport", "healthcare", "education"},
	"funding_models": FundingModels,
	"form_factors":   FormFactors,
	"currencies":     {"EUR", "USD", "GBP", "CHF", "SEK", "NOK", "DKK", "PLN", "CZK", "HUF"},
	"statuses":       Statuses,
}

type SchemaDocument struct {
	Schema    map[string]interface{} `json:"schema"`
	Version   string                 `json:"version"`
	UpdatedAt string                 `json:"updated_at"`
	Source    string                 `json:"source"`
}

type enumSet struct {
	codes  []string
	labels []LookupOption
}

func pick(rows []LookupOption, fallback []string) enumSet {
	if len(rows) == 0 {
		return enumSet{codes: fallback, labels: []LookupOption{}}
	}
	codes := make([]string, len(rows))
	for i, r := range rows {
		codes[i] = r.Code
	}
	return enumSet{codes: codes, labels: rows}
}

// buildSchema describes every configuration field for clients. A nil opts
// uses the built-in option lists.
func buildSchema(opts *LookupOptions) map[string]interface{} {
	if opts == nil {
		opts = &LookupOptions{}
	}
	schemes := pick(opts.CardSchemes, fallbackOptions["card_schemes"])
	types := pick(opts.ProgramTypes, fallbackOptions["program_types"])
	funding := pick(opts.FundingModels, fallbackOptions["funding_models"])
	factors := pick(opts.FormFactors, fallbackOptions["form_factors"])
	currencies := pick(opts.Currencies, fallbackOptions["currencies"])
	statuses := pick(opts.Statuses, fallbackOptions["statuses"])

	enum := func(set enumSet, required bool, description string) map[string]interface{} {
		return map[string]interface{}{
			"type":              "enum",
			"required":          required,
			"options":           set.codes,
			"optionsWithLabels": set.labels,
			"description":       description,
		}
	}

	status := enum(statuses, false, "Current status of the program")
	status["default"] = StatusDraft
	currency := enum(currencies, true, "Currency for the card program")
	currency["default"] = "EUR"

	return map[string]interface{}{
		"program_name": map[string]interface{}{
			"type":        "string",
			"required":    true,
			"minLength":   3,
			"maxLength":   255,
			"description": "Name of the card program",
		},
		"program_type":  enum(types, true, "Type of card program"),
		"status":        status,
		"funding_model": enum(funding, true, "How the card is funded"),
		"form_factors": map[string]interface{}{
			"type":     "array",
			"required": true,
			"items": map[string]interface{}{
				"type":              "enum",
				"options":           factors.codes,
				"optionsWithLabels": factors.labels,
			},
			"description": "Card form factors (can select multiple)",
		},
		"card_scheme": enum(schemes, true, "Card payment network"),
		"currency":    currency,
		"estimated_cards": map[string]interface{}{
			"type":        "integer",
			"required":    true,
			"minimum":     1,
			"maximum":     1000000,
			"default":     defaultEstimatedCards,
			"description": "Estimated number of cards needed",
		},
		"daily_limit": map[string]interface{}{
			"type":        "number",
			"required":    true,
			"minimum":     0,
			"default":     defaultDailyLimit,
			"description": "Daily spending limit per card",
		},
		"monthly_limit": map[string]interface{}{
			"type":        "number",
			"required":    true,
			"minimum":     0,
			"default":     defaultMonthlyLimit,
			"description": "Monthly spending limit per card",
		},
		"card_design": map[string]interface{}{
			"type":        "enum",
			"required":    false,
			"default":     defaultCardDesign,
			"options":     CardDesigns,
			"description": "Visual design of the card",
		},
		"card_color": map[string]interface{}{
			"type":        "string",
			"required":    false,
			"pattern":     cardColorPattern,
			"default":     defaultCardColor,
			"description": "Custom card color (hex format)",
		},
		"card_background_image": map[string]interface{}{
			"type":        "string",
			"required":    false,
			"format":      "uri",
			"description": "URL to custom background image",
		},
		"mcc_restrictions": map[string]interface{}{
			"type":        "array",
			"required":    false,
			"items":       map[string]interface{}{"type": "string", "pattern": mccPattern},
			"description": "Merchant Category Code restrictions (4-digit codes)",
		},
		"country_restrictions": map[string]interface{}{
			"type":        "array",
			"required":    false,
			"items":       map[string]interface{}{"type": "string", "pattern": countryPattern},
			"description": "Country restrictions (ISO 3166-1 alpha-2 codes)",
		},
		"additional_config": map[string]interface{}{
			"type":        "object",
			"required":    false,
			"properties":  additionalConfigFields,
			"description": "Additional extensible configuration options",
		},
	}
}

const (
	cardColorPattern = `^#[0-9A-Fa-f]{6}$`
	mccPattern       = `^[0-9]{4}$`
	countryPattern   = `^[A-Z]{2}$`
)

var additionalConfigFields = map[string]interface{}{
	"card_material": map[string]interface{}{
		"type":        "enum",
		"options":     []string{"plastic", "metal", "recycled", "biodegradable"},
		"description": "Physical card material",
	},
	"aml_provider": map[string]interface{}{
		"type":        "enum",
		"options":     []string{"enfuce_standard", "external_provider_a", "external_provider_b"},
		"description": "AML (Anti-Money Laundering) service provider",
	},
	"fraud_control_provider": map[string]interface{}{
		"type":        "enum",
		"options":     []string{"enfuce_standard", "external_provider_a", "external_provider_b"},
		"description": "Fraud control service provider",
	},
	"kyc_level": map[string]interface{}{
		"type":        "enum",
		"options":     []string{"basic", "enhanced", "full"},
		"description": "Know Your Customer verification level",
	},
	"chip_type": map[string]interface{}{
		"type":        "enum",
		"options":     []string{"emv", "contactless", "dual"},
		"description": "Card chip technology",
	},
	"expiry_years": map[string]interface{}{
		"type":        "integer",
		"minimum":     1,
		"maximum":     10,
		"default":     3,
		"description": "Card expiry duration in years",
	},
}

// payloadSchema is the JSON Schema a stored configuration must satisfy.
func payloadSchema() map[string]interface{} {
	nullable := func(t string) []string { return []string{t, "null"} }

	additional := make(map[string]interface{}, len(additionalConfigFields))
	for name, raw := range additionalConfigFields {
		field := raw.(map[string]interface{})
		if opts, ok := field["options"]; ok {
			additional[name] = map[string]interface{}{"enum": opts}
			continue
		}
		additional[name] = map[string]interface{}{
			"type":    field["type"],
			"minimum": field["minimum"],
			"maximum": field["maximum"],
		}
	}

	return map[string]interface{}{
		"type":     "object",
		"required": []string{"program_name", "program_type", "funding_model", "form_factors", "card_scheme", "currency"},
		"properties": map[string]interface{}{
			"program_name":  map[string]interface{}{"type": "string", "minLength": 3, "maxLength": 255},
			"program_type":  map[string]interface{}{"enum": ProgramTypes},
			"status":        map[string]interface{}{"enum": Statuses},
			"funding_model": map[string]interface{}{"enum": FundingModels},
			"form_factors": map[string]interface{}{
				"type":        "array",
				"minItems":    1,
				"uniqueItems": true,
				"items":       map[string]interface{}{"enum": FormFactors},
			},
			"card_scheme":     map[string]interface{}{"enum": CardSchemes},
			"currency":        map[string]interface{}{"type": "string", "pattern": `^[A-Z]{3}$`},
			"estimated_cards": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 1000000},
			"daily_limit":     map[string]interface{}{"type": "number", "minimum": 0},
			"monthly_limit":   map[string]interface{}{"type": "number", "minimum": 0},
			"card_design":     map[string]interface{}{"enum": CardDesigns},
			"card_color":      map[string]interface{}{"type": "string", "pattern": cardColorPattern},
			"card_background_image": map[string]interface{}{
				"type":   nullable("string"),
				"format": "uri",
			},
			"mcc_restrictions": map[string]interface{}{
				"type":  nullable("array"),
				"items": map[string]interface{}{"type": "string", "pattern": mccPattern},
			},
			"country_restrictions": map[string]interface{}{
				"type":  nullable("array"),
				"items": map[string]interface{}{"type": "string", "pattern": countryPattern},
			},
			"additional_config": map[string]interface{}{
				"type":       nullable("object"),
				"properties": additional,
			},
		},
	}
}

// validatePayload checks cfg against payloadSchema and reports every
// violation in one error.
func validatePayload(cfg *Configuration) error {
	result, err := validation.ValidateDocument(payloadSchema(), cfg)
	if err != nil {
		return errors.NewValidationFailedError("Configuration validation failed", err.Error())
	}
	if result.Valid {
		return nil
	}
	return errors.NewValidationFailedError("Configuration validation failed",
		strings.Join(result.GetErrorMessages(), "; ")).
		WithMetadata("errors", result.Errors)
}

// Schema returns the field schema. Option lists come from the lookup tables
// when a database is configured and reachable.
func (s *Service) Schema(ctx context.Context) *SchemaDocument {
	doc := &SchemaDocument{
		Version:   SchemaVersion,
		UpdatedAt: schemaUpdatedAt,
		Source:    "fallback",
	}
	if s.repo == nil {
		doc.Schema = buildSchema(nil)
		return doc
	}

	opts, err := s.repo.LookupOptions(ctx)
	if err != nil {
		s.logger.Warn("lookup tables unavailable, using fallback options", map[string]interface{}{
			"error": err.Error(),
		})
		doc.Schema = buildSchema(nil)
		return doc
	}
	doc.Schema = buildSchema(opts)
	doc.Source = "database"
	return doc
}
