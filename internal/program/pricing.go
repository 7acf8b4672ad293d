package program

import "math"

const (
	setupFee               = 500
	basePlatformFee        = 99
	avgTransactionsPerCard = 50
	defaultCardCount       = 100
)

var fundingMultipliers = map[string]float64{
	"prepaid":   1.0,
	"debit":     1.2,
	"credit":    1.5,
	"revolving": 1.8,
}

var formFactorCosts = map[string]float64{
	"physical":  2,
	"virtual":   0.5,
	"tokenized": 1,
}

var schemeTransactionFees = map[string]float64{
	"Visa":       0.10,
	"Mastercard": 0.12,
}

type Pricing struct {
	Currency        string           `json:"currency"`
	Total           int64            `json:"total"`
	Breakdown       PricingBreakdown `json:"breakdown"`
	Monthly         int64            `json:"monthly"`
	PerCard         int64            `json:"perCard"`
	AnnualRecurring int64            `json:"annualRecurring"`
}

type PricingBreakdown struct {
	SetupFee              float64 `json:"setupFee"`
	FormFactorCost        float64 `json:"formFactorCost"`
	MonthlyFee            float64 `json:"monthlyFee"`
	AnnualTransactionFees float64 `json:"annualTransactionFees"`
}

// CalculatePricing quotes the first year of a program: setup, per-card
// form factor costs, twelve months of platform fee and scheme transaction
// fees.
func CalculatePricing(req Request) *Pricing {
	cards := req.EstimatedCards
	if cards <= 0 {
		cards = defaultCardCount
	}
	multiplier, ok := fundingMultipliers[req.FundingModel]
	if !ok {
		multiplier = 1.0
	}
	schemeFee, ok := schemeTransactionFees[req.Scheme]
	if !ok {
		schemeFee = 0.10
	}

	b := PricingBreakdown{SetupFee: setupFee}
	for _, f := range req.FormFactor {
		b.FormFactorCost += formFactorCosts[f] * float64(cards)
	}
	b.MonthlyFee = basePlatformFee * multiplier
	b.AnnualTransactionFees = schemeFee * float64(cards) * avgTransactionsPerCard

	total := b.SetupFee + b.FormFactorCost + b.MonthlyFee*12 + b.AnnualTransactionFees

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}
	p := &Pricing{
		Currency:        currency,
		Total:           round(total),
		Breakdown:       b,
		Monthly:         round((total - b.SetupFee) / 12),
		AnnualRecurring: round(total - b.SetupFee),
	}
	if req.EstimatedCards > 0 {
		p.PerCard = round(total / float64(req.EstimatedCards))
	}
	return p
}

func round(v float64) int64 {
	return int64(math.Round(v))
}
