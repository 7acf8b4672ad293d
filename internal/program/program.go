// Package program provisions card programs against the simulated issuing
// platform and keeps the result for a day.
package program

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/common/ids"
	"card-program-wizard/internal/common/logger"
)

const (
	StatusActive          = "active"
	StatusPendingApproval = "pending_approval"

	DefaultTTL = 24 * time.Hour
	keyPrefix  = "wizard:program:"

	timestampLayout = "2006-01-02T15:04:05.000Z"
)

type Request struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	FundingModel   string   `json:"fundingModel"`
	Scheme         string   `json:"scheme"`
	Currency       string   `json:"currency"`
	EstimatedCards int      `json:"estimatedCards,omitempty"`
	DailyLimit     float64  `json:"dailyLimit,omitempty"`
	MonthlyLimit   float64  `json:"monthlyLimit,omitempty"`
	FormFactor     []string `json:"formFactor,omitempty"`
}

func (r *Request) missingFields() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", r.Name},
		{"type", r.Type},
		{"fundingModel", r.FundingModel},
		{"scheme", r.Scheme},
		{"currency", r.Currency},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type Details struct {
	Request
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Limits struct {
	Daily   float64 `json:"daily"`
	Monthly float64 `json:"monthly"`
}

type APICall struct {
	API         string   `json:"api"`
	Status      string   `json:"status"`
	Message     string   `json:"message,omitempty"`
	Limits      *Limits  `json:"limits,omitempty"`
	FormFactors []string `json:"formFactors,omitempty"`
	Scheme      string   `json:"scheme,omitempty"`
	Timestamp   string   `json:"timestamp"`
}

type NextStep struct {
	Step          int    `json:"step"`
	Action        string `json:"action"`
	Description   string `json:"description"`
	EstimatedTime string `json:"estimatedTime"`
}

type Documentation struct {
	APIReference     string `json:"apiReference"`
	SDKDownload      string `json:"sdkDownload"`
	IntegrationGuide string `json:"integrationGuide"`
}

// Program is the provisioning result returned to the caller and cached.
type Program struct {
	ProgramID     string         `json:"programId"`
	Status        string         `json:"status"`
	CreatedAt     string         `json:"createdAt,omitempty"`
	Program       *Details       `json:"program,omitempty"`
	Pricing       *Pricing       `json:"pricing,omitempty"`
	APICalls      []APICall      `json:"apiCalls,omitempty"`
	NextSteps     []NextStep     `json:"nextSteps,omitempty"`
	Documentation *Documentation `json:"documentation,omitempty"`
	Message       string         `json:"message,omitempty"`
	Mock          bool           `json:"mock,omitempty"`
}

type Service struct {
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

// NewService keeps created programs in client for ttl. A nil client keeps
// nothing and Get answers with reconstructed data.
func NewService(client redis.Cmdable, ttl time.Duration, log logger.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		redis:  client,
		ttl:    ttl,
		logger: logger.ForComponent(log, "program"),
		now:    time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req Request) (*Program, error) {
	if missing := req.missingFields(); len(missing) > 0 {
		return nil, errors.NewValidationFailedError("Missing required fields", strings.Join(missing, ", ")).
			WithMetadata("missingFields", missing)
	}

	now := s.now().UTC()
	stamp := now.Format(timestampLayout)
	programID := ids.Program(now)

	status := StatusActive
	if req.FundingModel == "credit" {
		status = StatusPendingApproval
	}

	p := &Program{
		ProgramID: programID,
		Status:    status,
		CreatedAt: stamp,
		Program:   &Details{Request: req, ID: programID, Status: status},
		Pricing:   CalculatePricing(req),
		APICalls:  apiCalls(req, stamp),
		NextSteps: nextSteps(req),
		Documentation: &Documentation{
			APIReference:     "/docs/api",
			SDKDownload:      "/downloads/sdk",
			IntegrationGuide: "/docs/integration",
		},
	}

	if s.redis != nil {
		if err := s.save(ctx, p); err != nil {
			s.logger.Warn("failed to cache card program", map[string]interface{}{
				"programId": programID,
				"error":     err.Error(),
			})
		}
	}

	s.logger.Info("card program created", map[string]interface{}{
		"programId":    programID,
		"type":         req.Type,
		"fundingModel": req.FundingModel,
		"status":       status,
	})
	return p, nil
}

func (s *Service) save(ctx context.Context, p *Program) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal program: %w", err)
	}
	return s.redis.Set(ctx, keyPrefix+p.ProgramID, b, s.ttl).Err()
}

// Get returns a cached program. Unknown ids, or any id when no cache is
// configured, are answered with a reconstructed active program.
func (s *Service) Get(ctx context.Context, programID string) (*Program, error) {
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return nil, errors.NewInvalidRequestError("Missing programId parameter")
	}

	if s.redis != nil {
		raw, err := s.redis.Get(ctx, keyPrefix+programID).Bytes()
		switch {
		case err == nil:
			var p Program
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, errors.NewDatabaseQueryFailedError("decode program", err)
			}
			return &p, nil
		case stderrors.Is(err, redis.Nil):
		default:
			s.logger.Warn("card program cache unavailable", map[string]interface{}{
				"programId": programID,
				"error":     err.Error(),
			})
		}
	}

	return &Program{
		ProgramID: programID,
		Status:    StatusActive,
		Message:   "Program retrieved successfully (mock data)",
		Mock:      true,
	}, nil
}

func apiCalls(req Request, stamp string) []APICall {
	calls := []APICall{{API: "program_creation", Status: "success", Timestamp: stamp}}

	if req.EstimatedCards > 1000 {
		calls = append(calls, APICall{
			API:       "enterprise_setup",
			Status:    "success",
			Message:   "Enterprise pricing and support enabled",
			Timestamp: stamp,
		})
	}
	if isCredit(req.FundingModel) {
		calls = append(calls, APICall{
			API:       "credit_approval",
			Status:    "pending",
			Message:   "Credit check initiated - approval within 24-48 hours",
			Timestamp: stamp,
		})
	}
	if req.Type == "corporate" {
		calls = append(calls, APICall{
			API:       "corporate_benefits",
			Status:    "success",
			Message:   "Corporate expense management features enabled",
			Timestamp: stamp,
		})
	}

	limits := &Limits{Daily: req.DailyLimit, Monthly: req.MonthlyLimit}
	if limits.Daily == 0 {
		limits.Daily = 500
	}
	if limits.Monthly == 0 {
		limits.Monthly = 5000
	}
	calls = append(calls, APICall{API: "limits_configuration", Status: "success", Limits: limits, Timestamp: stamp})

	factors := req.FormFactor
	if len(factors) == 0 {
		factors = []string{"physical"}
	}
	calls = append(calls, APICall{
		API:         "card_provisioning",
		Status:      "success",
		FormFactors: factors,
		Scheme:      req.Scheme,
		Timestamp:   stamp,
	})
	return calls
}

func nextSteps(req Request) []NextStep {
	var steps []NextStep
	add := func(action, description, eta string) {
		steps = append(steps, NextStep{Step: len(steps) + 1, Action: action, Description: description, EstimatedTime: eta})
	}

	if isCredit(req.FundingModel) {
		add("Complete credit approval", "Submit required financial documents for credit assessment", "24-48 hours")
	}
	add("BIN sponsorship", "Secure BIN sponsor agreement for card issuance", "1-2 weeks")
	add("Card design approval", "Finalize card design and branding elements", "3-5 days")
	for _, f := range req.FormFactor {
		if f == "physical" {
			add("Physical card production", "Order and produce physical cards", "2-3 weeks")
			break
		}
	}
	add("Integration & testing", "Integrate API and test card functionality", "1-2 weeks")
	add("Go live", "Launch card program to end users", "1 day")
	return steps
}

func isCredit(fundingModel string) bool {
	return fundingModel == "credit" || fundingModel == "revolving"
}
