package configurations

const (
	baseSetupFee         = 500
	baseMonthlyFee       = 50
	perCardIssuanceFee   = 2
	includedCards        = 100
	perExtraCardMonthly  = 0.5
	tokenizationSetupFee = 100
	creditFacilityFee    = 200
)

type Pricing struct {
	Currency         string           `json:"currency"`
	SetupFee         float64          `json:"setup_fee"`
	MonthlyFee       float64          `json:"monthly_fee"`
	CardIssuanceFee  float64          `json:"card_issuance_fee"`
	AdditionalFees   float64          `json:"additional_fees"`
	TotalFirstMonth  float64          `json:"total_first_month"`
	MonthlyRecurring float64          `json:"monthly_recurring"`
	Breakdown        PricingBreakdown `json:"breakdown"`
}

type PricingBreakdown struct {
	BaseSetup   float64         `json:"base_setup"`
	BaseMonthly float64         `json:"base_monthly"`
	PerCardFee  float64         `json:"per_card_fee"`
	CardCount   int             `json:"card_count"`
	Features    PricingFeatures `json:"features"`
}

type PricingFeatures struct {
	Tokenization   float64 `json:"tokenization"`
	CreditFacility float64 `json:"credit_facility"`
}

// CalculatePricing quotes the first month and the recurring fee for a
// configuration. Cards beyond the included hundred add to the monthly fee.
func CalculatePricing(cfg *Configuration) *Pricing {
	cards := cfg.EstimatedCards
	if cards <= 0 {
		cards = defaultEstimatedCards
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "EUR"
	}

	monthly := float64(baseMonthlyFee)
	if cards > includedCards {
		monthly += float64(cards-includedCards) * perExtraCardMonthly
	}
	issuance := float64(cards * perCardIssuanceFee)

	var features PricingFeatures
	if contains(cfg.FormFactors, "tokenized") {
		features.Tokenization = tokenizationSetupFee
	}
	if cfg.FundingModel == "credit" || cfg.FundingModel == "revolving" {
		features.CreditFacility = creditFacilityFee
	}
	additional := features.Tokenization + features.CreditFacility

	return &Pricing{
		Currency:         currency,
		SetupFee:         baseSetupFee,
		MonthlyFee:       monthly,
		CardIssuanceFee:  issuance,
		AdditionalFees:   additional,
		TotalFirstMonth:  baseSetupFee + monthly + issuance + additional,
		MonthlyRecurring: monthly,
		Breakdown: PricingBreakdown{
			BaseSetup:   baseSetupFee,
			BaseMonthly: baseMonthlyFee,
			PerCardFee:  perCardIssuanceFee,
			CardCount:   cards,
			Features:    features,
		},
	}
}
