package createconfiguration

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/configurations"
)

const TaskType = "create-configuration"

// Creator persists a new configuration.
type Creator interface {
	Create(ctx context.Context, req configurations.CreateRequest) (*configurations.Configuration, error)
}

type Handler struct {
	config  *Config
	creator Creator
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(cfg *Config, creator Creator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  cfg,
		creator: creator,
		errors:  errors.NewErrorHandler(log),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, errors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.CollectedData) == 0 {
		return nil, errors.NewInvalidRequestError("collectedData is required")
	}

	req := toCreateRequest(input)
	if req.CreatedBy == "" {
		req.CreatedBy = h.config.CreatedBy
	}

	cfg, err := h.creator.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Output{
		ConfigurationID: cfg.ID,
		Status:          cfg.Status,
		CreatedAt:       cfg.CreatedAt.UTC().Format(time.RFC3339),
	}
	if cfg.Pricing != nil {
		out.TotalFirstMonth = cfg.Pricing.TotalFirstMonth
		out.MonthlyRecurring = cfg.Pricing.MonthlyRecurring
	}

	h.logger.Info("configuration created from wizard", map[string]interface{}{
		"configurationId": cfg.ID,
		"programType":     cfg.ProgramType,
	})
	return out, nil
}

// toCreateRequest maps wizard answers onto the configuration fields. The
// wizard asks for a single form_factor question that may hold one or many
// values.
func toCreateRequest(input *Input) configurations.CreateRequest {
	d := input.CollectedData
	req := configurations.CreateRequest{
		ClientEmail:   input.ClientEmail,
		ClientName:    input.ClientName,
		ClientCompany: input.ClientCompany,
		CreatedBy:     input.CreatedBy,
		ProgramName:   str(d["program_name"]),
		ProgramType:   strings.ToLower(str(d["program_type"])),
		FundingModel:  strings.ToLower(str(d["funding_model"])),
		CardScheme:    configurations.NormalizeScheme(str(d["card_scheme"])),
		Currency:      strings.ToUpper(str(d["currency"])),
		FormFactors:   strs(firstOf(d, "form_factors", "form_factor")),
	}
	if n, ok := num(d["estimated_cards"]); ok {
		req.EstimatedCards = int(math.Round(n))
	}
	if n, ok := num(d["daily_limit"]); ok {
		req.DailyLimit = n
	}
	if n, ok := num(d["monthly_limit"]); ok {
		req.MonthlyLimit = n
	}
	return req
}

func firstOf(d map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := d[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func strs(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := str(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func num(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
