// Package configurations stores card program configurations produced by the
// wizard. Records live in Postgres, are optionally mirrored to an
// Elasticsearch index for search, and are announced on creation.
package configurations

import (
	"sort"
	"strings"
	"time"
)

const (
	StatusDraft           = "draft"
	StatusPendingApproval = "pending_approval"
	StatusActive          = "active"
	StatusSuspended       = "suspended"
	StatusArchived        = "archived"
)

// Values accepted when creating or updating a configuration.
var (
	ProgramTypes  = []string{"corporate", "fleet", "meal", "travel", "gift", "transport"}
	FundingModels = []string{"prepaid", "debit", "credit", "revolving"}
	CardSchemes   = []string{"Visa", "Mastercard"}
	Statuses      = []string{StatusDraft, StatusPendingApproval, StatusActive, StatusSuspended, StatusArchived}
	FormFactors   = []string{"physical", "virtual", "tokenized"}
	CardDesigns   = []string{"corporate", "premium", "ocean", "sunset", "custom"}
)

const (
	defaultEstimatedCards = 100
	defaultDailyLimit     = 500
	defaultMonthlyLimit   = 5000
	defaultCardDesign     = "corporate"
	defaultCardColor      = "#2C3E50"
	defaultCreatedBy      = "wizard"
	defaultChangedBy      = "api"
)

type Client struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	CompanyName *string `json:"company_name"`
}

type Configuration struct {
	ID                  string                 `json:"id"`
	ClientID            *string                `json:"client_id"`
	ProgramName         string                 `json:"program_name"`
	ProgramType         string                 `json:"program_type"`
	Status              string                 `json:"status"`
	FundingModel        string                 `json:"funding_model"`
	FormFactors         []string               `json:"form_factors"`
	CardScheme          string                 `json:"card_scheme"`
	Currency            string                 `json:"currency"`
	EstimatedCards      int                    `json:"estimated_cards"`
	DailyLimit          float64                `json:"daily_limit"`
	MonthlyLimit        float64                `json:"monthly_limit"`
	CardDesign          string                 `json:"card_design"`
	CardColor           string                 `json:"card_color"`
	CardBackgroundImage *string                `json:"card_background_image"`
	MCCRestrictions     []string               `json:"mcc_restrictions"`
	CountryRestrictions []string               `json:"country_restrictions"`
	AdditionalConfig    map[string]interface{} `json:"additional_config"`
	Pricing             *Pricing               `json:"pricing"`
	CreatedBy           string                 `json:"created_by"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
	Client              *Client                `json:"client,omitempty"`
}

// CreateRequest is the body of a create call. Zero values take the
// documented defaults.
type CreateRequest struct {
	ClientID            string                 `json:"client_id,omitempty"`
	ClientEmail         string                 `json:"client_email,omitempty"`
	ClientName          string                 `json:"client_name,omitempty"`
	ClientCompany       string                 `json:"client_company,omitempty"`
	ProgramName         string                 `json:"program_name"`
	ProgramType         string                 `json:"program_type"`
	Status              string                 `json:"status,omitempty"`
	FundingModel        string                 `json:"funding_model"`
	FormFactors         []string               `json:"form_factors"`
	CardScheme          string                 `json:"card_scheme"`
	Currency            string                 `json:"currency"`
	EstimatedCards      int                    `json:"estimated_cards,omitempty"`
	DailyLimit          float64                `json:"daily_limit,omitempty"`
	MonthlyLimit        float64                `json:"monthly_limit,omitempty"`
	CardDesign          string                 `json:"card_design,omitempty"`
	CardColor           string                 `json:"card_color,omitempty"`
	CardBackgroundImage string                 `json:"card_background_image,omitempty"`
	MCCRestrictions     []string               `json:"mcc_restrictions,omitempty"`
	CountryRestrictions []string               `json:"country_restrictions,omitempty"`
	AdditionalConfig    map[string]interface{} `json:"additional_config,omitempty"`
	CreatedBy           string                 `json:"created_by,omitempty"`
}

func (r *CreateRequest) missingFields() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("program_name", r.ProgramName)
	check("program_type", r.ProgramType)
	check("funding_model", r.FundingModel)
	if len(r.FormFactors) == 0 {
		missing = append(missing, "form_factors")
	}
	check("card_scheme", r.CardScheme)
	check("currency", r.Currency)
	return missing
}

type AuditEntry struct {
	ConfigurationID string                 `json:"configuration_id"`
	Action          string                 `json:"action"`
	ChangedBy       string                 `json:"changed_by"`
	Changes         map[string]interface{} `json:"changes"`
}

// ListParams filters and pages a configuration listing.
type ListParams struct {
	ClientID    string
	Status      string
	ProgramType string
	Search      string
	Sort        string
	Order       string
	Limit       int
	Offset      int

	// IDs restricts the listing to known ids, as returned by the search index.
	IDs []string
}

var sortFields = []string{"created_at", "updated_at", "program_name", "status"}

func (p ListParams) normalized() ListParams {
	if !contains(sortFields, p.Sort) {
		p.Sort = "created_at"
	}
	if p.Order != "asc" {
		p.Order = "desc"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

type ListResult struct {
	Data       []Configuration `json:"data"`
	Count      int             `json:"count"`
	Pagination Pagination      `json:"pagination"`
}

type DeleteResult struct {
	Data      *Configuration `json:"data,omitempty"`
	DeletedID string         `json:"deleted_id,omitempty"`
	Archived  bool           `json:"archived"`
}

// NormalizeScheme capitalises a scheme name the way the catalog spells it.
func NormalizeScheme(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
