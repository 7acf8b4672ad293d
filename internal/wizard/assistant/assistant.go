// Package assistant answers conversational wizard turns. It recognises
// navigation commands, then validates the answer with the local extractor or
// with a configured remote language model, falling back to the local
// extractor whenever the remote path fails.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"card-program-wizard/internal/common/config"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/common/metrics"
	"card-program-wizard/internal/wizard/command"
	"card-program-wizard/internal/wizard/extract"
)

// Providers.
const (
	ProviderLocal     = "local"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Actions.
const (
	ActionValidate  = "validate"
	ActionSummarize = "summarize"
	ActionHelp      = "help"
)

var ErrInvalidRequest = errors.New("INVALID_REQUEST")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Context struct {
	CurrentQuestion     extract.Question       `json:"current_question"`
	UserInput           string                 `json:"user_input"`
	ConversationHistory []Message              `json:"conversation_history,omitempty"`
	CollectedData       map[string]interface{} `json:"collected_data,omitempty"`
}

type Request struct {
	Provider string   `json:"provider,omitempty"`
	Action   string   `json:"action"`
	Context  *Context `json:"context"`
}

type Response struct {
	Success               bool        `json:"success"`
	ProviderUsed          string      `json:"provider_used,omitempty"`
	Fallback              bool        `json:"fallback,omitempty"`
	Validated             bool        `json:"validated"`
	ExtractedValue        interface{} `json:"extracted_value,omitempty"`
	Confidence            float64     `json:"confidence"`
	AIResponse            string      `json:"ai_response"`
	RequiresClarification bool        `json:"requires_clarification"`
	Suggestions           []string    `json:"suggestions,omitempty"`
	IsCommand             bool        `json:"is_command,omitempty"`
	Command               string      `json:"command,omitempty"`
	CommandAction         string      `json:"command_action,omitempty"`
	Data                  interface{} `json:"data,omitempty"`
}

type Service struct {
	config     config.AssistantConfig
	extractor  *extract.Extractor
	completers map[string]Completer
	httpClient *http.Client
	logger     logger.Logger
}

type Option func(*Service)

// WithHTTPClient sets the client used by the OpenAI and Anthropic providers.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

func WithExtractor(e *extract.Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithCompleter registers or replaces a remote provider.
func WithCompleter(c Completer) Option {
	return func(s *Service) { s.completers[c.Name()] = c }
}

// NewService registers a remote provider for every provider block that has
// an API key. Providers that fail to initialise are logged and skipped.
func NewService(cfg config.AssistantConfig, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		config:     cfg,
		extractor:  extract.New(),
		completers: make(map[string]Completer),
		httpClient: &http.Client{},
		logger:     logger.ForComponent(log, "assistant"),
	}

	// Completers registered by options take precedence over the defaults.
	for _, opt := range opts {
		opt(s)
	}

	if cfg.OpenAI.Enabled() {
		if _, ok := s.completers[ProviderOpenAI]; !ok {
			s.completers[ProviderOpenAI] = NewOpenAI(cfg.OpenAI, s.httpClient)
		}
	}
	if cfg.Anthropic.Enabled() {
		if _, ok := s.completers[ProviderAnthropic]; !ok {
			s.completers[ProviderAnthropic] = NewAnthropic(cfg.Anthropic, s.httpClient)
		}
	}
	if cfg.Gemini.Enabled() {
		if _, ok := s.completers[ProviderGemini]; !ok {
			g, err := NewGemini(context.Background(), cfg.Gemini, s.httpClient)
			if err != nil {
				s.logger.Warn("Gemini provider unavailable", map[string]interface{}{"error": err.Error()})
			} else {
				s.completers[ProviderGemini] = g
			}
		}
	}

	return s
}

// Providers lists the remote providers that can serve requests.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.completers))
	for _, name := range []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini} {
		if _, ok := s.completers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Handle answers one wizard turn. It only returns an error for malformed
// requests; every other failure becomes a not-validated response.
func (s *Service) Handle(ctx context.Context, req Request) (*Response, error) {
	if req.Action == "" || req.Context == nil || strings.TrimSpace(req.Context.UserInput) == "" {
		return nil, fmt.Errorf("%w: missing required fields: action, context, user_input", ErrInvalidRequest)
	}
	wc := req.Context

	if cmd, ok := command.Detect(wc.UserInput, wc.CurrentQuestion, wc.CollectedData); ok {
		metrics.CommandsTotal.WithLabelValues(cmd.Name).Inc()
		s.logger.Debug("command detected", map[string]interface{}{
			"command": cmd.Name,
			"field":   wc.CurrentQuestion.Field,
		})
		return &Response{
			Success:       true,
			IsCommand:     true,
			Command:       cmd.Name,
			CommandAction: cmd.Action,
			AIResponse:    cmd.Response,
			Data:          cmd.Data,
		}, nil
	}

	switch req.Action {
	case ActionValidate:
		return s.validate(ctx, req.Provider, wc), nil
	case ActionSummarize:
		return &Response{
			Success:      true,
			ProviderUsed: ProviderLocal,
			Validated:    true,
			Confidence:   1.0,
			AIResponse:   command.GenerateSummary(wc.CollectedData),
		}, nil
	case ActionHelp:
		return &Response{
			Success:      true,
			ProviderUsed: ProviderLocal,
			Validated:    true,
			Confidence:   1.0,
			AIResponse:   command.FieldHelp(wc.CurrentQuestion.Field),
		}, nil
	default:
		return &Response{
			Success:               true,
			ProviderUsed:          ProviderLocal,
			AIResponse:            "I didn't understand that. Could you try again?",
			RequiresClarification: true,
		}, nil
	}
}

func (s *Service) validate(ctx context.Context, provider string, wc *Context) *Response {
	if provider == "" {
		provider = s.config.DefaultProvider
	}

	completer, ok := s.completers[provider]
	if !ok || provider == ProviderLocal {
		return s.local(wc, false)
	}

	timeout := config.GetDuration(s.config.Timeout)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := s.remote(callCtx, completer, wc)
	metrics.AssistantCallDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AssistantCallsTotal.WithLabelValues(provider, "fallback").Inc()
		s.logger.Warn("remote provider failed, falling back to local", map[string]interface{}{
			"provider": provider,
			"field":    wc.CurrentQuestion.Field,
			"error":    err.Error(),
		})
		return s.local(wc, true)
	}

	metrics.AssistantCallsTotal.WithLabelValues(provider, "success").Inc()
	recordExtraction(wc.CurrentQuestion, result)
	return fromResult(result, provider, false)
}

func (s *Service) local(wc *Context, fallback bool) *Response {
	result := s.extractor.Extract(wc.CurrentQuestion, wc.UserInput)
	recordExtraction(wc.CurrentQuestion, result)
	return fromResult(result, ProviderLocal, fallback)
}

func recordExtraction(q extract.Question, r extract.Result) {
	outcome := "validated"
	if !r.Validated {
		outcome = "clarification"
	}
	metrics.ExtractionsTotal.WithLabelValues(string(q.Type), outcome).Inc()
}

func fromResult(r extract.Result, provider string, fallback bool) *Response {
	return &Response{
		Success:               true,
		ProviderUsed:          provider,
		Fallback:              fallback,
		Validated:             r.Validated,
		ExtractedValue:        r.ExtractedValue,
		Confidence:            r.Confidence,
		AIResponse:            r.AIResponse,
		RequiresClarification: r.RequiresClarification,
		Suggestions:           r.Suggestions,
	}
}
