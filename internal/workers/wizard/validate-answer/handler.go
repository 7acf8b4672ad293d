package validateanswer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/wizard/assistant"
	"card-program-wizard/internal/wizard/extract"
	"card-program-wizard/pkg/registry"
)

const TaskType = "validate-answer"

type Handler struct {
	config    *Config
	assistant *assistant.Service
	catalog   *registry.QuestionCatalog
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(cfg *Config, svc *assistant.Service, catalog *registry.QuestionCatalog, log logger.Logger) *Handler {
	if catalog == nil {
		catalog = registry.Default()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    cfg,
		assistant: svc,
		catalog:   catalog,
		errors:    errors.NewErrorHandler(log),
		logger:    log,
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
	q, err := h.question(input)
	if err != nil {
		return nil, err
	}

	action := input.Action
	if action == "" {
		action = assistant.ActionValidate
	}

	resp, err := h.assistant.Handle(ctx, assistant.Request{
		Provider: input.Provider,
		Action:   action,
		Context: &assistant.Context{
			CurrentQuestion:     q,
			UserInput:           input.UserInput,
			ConversationHistory: input.ConversationHistory,
			CollectedData:       input.CollectedData,
		},
	})
	if err != nil {
		return nil, errors.NewInvalidRequestError(err.Error())
	}

	collected := make(map[string]interface{}, len(input.CollectedData)+1)
	for k, v := range input.CollectedData {
		collected[k] = v
	}
	if resp.Validated && !resp.IsCommand && resp.ExtractedValue != nil {
		collected[q.Field] = resp.ExtractedValue
	}

	h.logger.Info("answer evaluated", map[string]interface{}{
		"field":     q.Field,
		"validated": resp.Validated,
		"command":   resp.Command,
		"provider":  resp.ProviderUsed,
	})

	return &Output{
		Validated:             resp.Validated,
		ExtractedValue:        resp.ExtractedValue,
		Confidence:            resp.Confidence,
		AIResponse:            resp.AIResponse,
		RequiresClarification: resp.RequiresClarification,
		Suggestions:           resp.Suggestions,
		ProviderUsed:          resp.ProviderUsed,
		Fallback:              resp.Fallback,
		IsCommand:             resp.IsCommand,
		Command:               resp.Command,
		CommandAction:         resp.CommandAction,
		CollectedData:         collected,
	}, nil
}

func (h *Handler) question(input *Input) (extract.Question, error) {
	if input.CurrentQuestion != nil && input.CurrentQuestion.Field != "" {
		return *input.CurrentQuestion, nil
	}
	if input.Field != "" {
		if q, ok := h.catalog.QuestionByField(input.Field); ok {
			return q.Extract(), nil
		}
		return extract.Question{}, errors.NewInvalidRequestError(fmt.Sprintf("unknown field %q", input.Field))
	}
	if input.Step > 0 {
		if q, ok := h.catalog.QuestionByStep(input.Step); ok {
			return q.Extract(), nil
		}
		return extract.Question{}, errors.NewInvalidRequestError(fmt.Sprintf("unknown step %d", input.Step))
	}
	return extract.Question{}, errors.NewInvalidRequestError("one of currentQuestion, field or step is required")
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
