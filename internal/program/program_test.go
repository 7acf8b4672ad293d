package program

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2024, 11, 27, 9, 30, 0, 0, time.UTC)

func createTestService(t *testing.T, client redis.Cmdable) *Service {
	s := NewService(client, 0, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s
}

func createTestRequest() Request {
	return Request{
		Name:           "Acme Expenses",
		Type:           "corporate",
		FundingModel:   "credit",
		Scheme:         "Mastercard",
		Currency:       "EUR",
		EstimatedCards: 2000,
		FormFactor:     []string{"virtual", "tokenized"},
	}
}

func apiNames(calls []APICall) []string {
	names := make([]string, 0, len(calls))
	for _, c := range calls {
		names = append(names, c.API)
	}
	return names
}

// ==========================
// Pricing Tests
// ==========================

func TestCalculatePricing(t *testing.T) {
	tests := []struct {
		name            string
		req             Request
		total           int64
		monthly         int64
		perCard         int64
		annualRecurring int64
	}{
		{
			name:            "prepaid visa physical defaults",
			req:             Request{FundingModel: "prepaid", Scheme: "Visa", EstimatedCards: 100, FormFactor: []string{"physical"}},
			total:           2388,
			monthly:         157,
			perCard:         24,
			annualRecurring: 1888,
		},
		{
			name: "credit mastercard digital",
			req: Request{FundingModel: "credit", Scheme: "Mastercard", EstimatedCards: 2000,
				FormFactor: []string{"virtual", "tokenized"}},
			total:           17282,
			monthly:         1399,
			perCard:         9,
			annualRecurring: 16782,
		},
		{
			name:            "no cards uses default count and zero per card",
			req:             Request{FundingModel: "debit", Scheme: "Amex"},
			total:           2426,
			monthly:         160,
			perCard:         0,
			annualRecurring: 1926,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CalculatePricing(tt.req)
			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, tt.monthly, p.Monthly)
			assert.Equal(t, tt.perCard, p.PerCard)
			assert.Equal(t, tt.annualRecurring, p.AnnualRecurring)
			assert.Equal(t, "EUR", p.Currency)
		})
	}
}

func TestCalculatePricing_Breakdown(t *testing.T) {
	p := CalculatePricing(Request{FundingModel: "revolving", Scheme: "Visa", Currency: "GBP", EstimatedCards: 10,
		FormFactor: []string{"physical", "virtual"}})

	assert.Equal(t, "GBP", p.Currency)
	assert.InDelta(t, 500, p.Breakdown.SetupFee, 1e-9)
	assert.InDelta(t, 25, p.Breakdown.FormFactorCost, 1e-9)
	assert.InDelta(t, 178.2, p.Breakdown.MonthlyFee, 1e-9)
	assert.InDelta(t, 50, p.Breakdown.AnnualTransactionFees, 1e-9)
}

// ==========================
// Create Tests
// ==========================

func TestCreate_MissingFields(t *testing.T) {
	s := createTestService(t, nil)

	_, err := s.Create(context.Background(), Request{Name: "Only a name", Currency: " "})
	require.Error(t, err)

	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, se.Code)
	assert.Equal(t, []string{"type", "fundingModel", "scheme", "currency"}, se.Metadata["missingFields"])
}

func TestCreate_CreditCorporateProgram(t *testing.T) {
	s := createTestService(t, nil)

	p, err := s.Create(context.Background(), createTestRequest())
	require.NoError(t, err)

	assert.Regexp(t, `^PROG-1732699800000-[0-9A-Z]{9}$`, p.ProgramID)
	assert.Equal(t, StatusPendingApproval, p.Status)
	assert.Equal(t, "2024-11-27T09:30:00.000Z", p.CreatedAt)
	assert.Equal(t, p.ProgramID, p.Program.ID)
	assert.Equal(t, StatusPendingApproval, p.Program.Status)
	assert.Equal(t, "Acme Expenses", p.Program.Name)

	assert.Equal(t, []string{
		"program_creation", "enterprise_setup", "credit_approval",
		"corporate_benefits", "limits_configuration", "card_provisioning",
	}, apiNames(p.APICalls))
	assert.Equal(t, "pending", p.APICalls[2].Status)
	assert.Equal(t, &Limits{Daily: 500, Monthly: 5000}, p.APICalls[4].Limits)
	assert.Equal(t, []string{"virtual", "tokenized"}, p.APICalls[5].FormFactors)

	actions := make([]string, 0, len(p.NextSteps))
	for i, step := range p.NextSteps {
		assert.Equal(t, i+1, step.Step)
		actions = append(actions, step.Action)
	}
	assert.Equal(t, []string{
		"Complete credit approval", "BIN sponsorship", "Card design approval",
		"Integration & testing", "Go live",
	}, actions)

	assert.Equal(t, "/docs/api", p.Documentation.APIReference)
	assert.Equal(t, int64(17282), p.Pricing.Total)
}

func TestCreate_PrepaidDefaults(t *testing.T) {
	s := createTestService(t, nil)

	p, err := s.Create(context.Background(), Request{
		Name: "Gift", Type: "gift", FundingModel: "prepaid", Scheme: "Visa", Currency: "USD",
		FormFactor: []string{"physical"}, DailyLimit: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, []string{"program_creation", "limits_configuration", "card_provisioning"}, apiNames(p.APICalls))
	assert.Equal(t, &Limits{Daily: 100, Monthly: 5000}, p.APICalls[1].Limits)
	assert.Len(t, p.NextSteps, 5)
	assert.Equal(t, "Physical card production", p.NextSteps[2].Action)
}

func TestCreate_RevolvingKeepsActiveStatus(t *testing.T) {
	s := createTestService(t, nil)

	req := createTestRequest()
	req.FundingModel = "revolving"
	req.Type = "consumer"
	req.FormFactor = nil
	p, err := s.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, p.Status)
	assert.Contains(t, apiNames(p.APICalls), "credit_approval")
	assert.Equal(t, []string{"physical"}, p.APICalls[len(p.APICalls)-1].FormFactors)
}

// ==========================
// Storage Tests
// ==========================

func TestCreateAndGet_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := createTestService(t, client)
	ctx := context.Background()

	created, err := s.Create(ctx, createTestRequest())
	require.NoError(t, err)

	key := "wizard:program:" + created.ProgramID
	assert.True(t, mr.Exists(key))
	assert.Equal(t, DefaultTTL, mr.TTL(key))

	got, err := s.Get(ctx, created.ProgramID)
	require.NoError(t, err)
	assert.False(t, got.Mock)
	assert.Equal(t, created.ProgramID, got.ProgramID)
	assert.Equal(t, created.Pricing.Total, got.Pricing.Total)
	assert.Equal(t, apiNames(created.APICalls), apiNames(got.APICalls))

	mr.FastForward(DefaultTTL + time.Second)
	expired, err := s.Get(ctx, created.ProgramID)
	require.NoError(t, err)
	assert.True(t, expired.Mock)
}

func TestGet_Unknown(t *testing.T) {
	s := createTestService(t, nil)

	p, err := s.Get(context.Background(), "PROG-1-ABC")
	require.NoError(t, err)
	assert.Equal(t, "PROG-1-ABC", p.ProgramID)
	assert.Equal(t, StatusActive, p.Status)
	assert.True(t, p.Mock)

	_, err = s.Get(context.Background(), "  ")
	se, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidRequest, se.Code)
}

func TestGet_CacheErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	s := createTestService(t, client)

	mock.ExpectGet("wizard:program:PROG-1").SetErr(stderrors.New("LOADING"))
	p, err := s.Get(context.Background(), "PROG-1")
	require.NoError(t, err)
	assert.True(t, p.Mock)

	mock.ExpectGet("wizard:program:PROG-2").SetVal("not json")
	_, err = s.Get(context.Background(), "PROG-2")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_CacheFailureIsNotFatal(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer client.Close()
	s := createTestService(t, client)

	p, err := s.Create(context.Background(), createTestRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, p.ProgramID)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"mock"`)
}
