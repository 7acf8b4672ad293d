package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"card-program-wizard/internal/wizard/extract"
)

var (
	ErrProviderFailed  = errors.New("ASSISTANT_PROVIDER_FAILED")
	ErrProviderTimeout = errors.New("ASSISTANT_PROVIDER_TIMEOUT")
	ErrUnparseable     = errors.New("ASSISTANT_RESPONSE_UNPARSEABLE")
)

// Prompt is a provider-neutral chat request.
type Prompt struct {
	System string
	User   string
}

// Completer sends one prompt to a remote language model and returns the raw
// text of its reply.
type Completer interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

// statusError carries a non-200 provider response.
type statusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *statusError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func (s *Service) remote(ctx context.Context, c Completer, wc *Context) (extract.Result, error) {
	ctx, span := otel.Tracer("card-program-wizard").Start(ctx, "assistant.complete")
	span.SetAttributes(
		attribute.String("provider", c.Name()),
		attribute.String("field", wc.CurrentQuestion.Field),
	)
	defer span.End()

	text, err := s.completeWithRetry(ctx, c, buildPrompt(wc))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return extract.Result{}, err
	}

	result, err := parseRemoteResult(wc.CurrentQuestion, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return extract.Result{}, err
	}
	return result, nil
}

func (s *Service) completeWithRetry(ctx context.Context, c Completer, p Prompt) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrProviderTimeout
			}
		}

		text, err := c.Complete(ctx, p)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ErrProviderTimeout
		}
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			break
		}
		s.logger.Debug("provider attempt failed", map[string]interface{}{
			"provider": c.Name(),
			"attempt":  attempt + 1,
			"error":    err.Error(),
		})
	}

	return "", fmt.Errorf("%w: %v", ErrProviderFailed, lastErr)
}

const systemPrompt = `You are an assistant helping a customer configure a payment card program.
Extract structured data from the customer's natural language answer to the current question.
If the customer is only greeting you or making small talk, acknowledge it and ask for the actual answer.
If the customer corrects an earlier answer ("no, it should be X"), extract the corrected value.
Respond with ONLY a JSON object, no markdown and no code blocks.`

func buildPrompt(wc *Context) Prompt {
	q := wc.CurrentQuestion
	var parts []string

	parts = append(parts, fmt.Sprintf("Current question: %q", q.Question))
	parts = append(parts, fmt.Sprintf("Field to extract: %s", q.Field))
	parts = append(parts, fmt.Sprintf("Expected type: %s", q.Type))
	if len(q.Options) > 0 {
		parts = append(parts, "Valid options: "+strings.Join(q.Options, ", "))
	}
	if q.MinLength != nil {
		parts = append(parts, fmt.Sprintf("Minimum length: %d characters", *q.MinLength))
	}
	if q.MaxLength != nil {
		parts = append(parts, fmt.Sprintf("Maximum length: %d characters", *q.MaxLength))
	}

	if n := len(wc.ConversationHistory); n > 0 {
		history := wc.ConversationHistory
		if n > 6 {
			history = history[n-6:]
		}
		parts = append(parts, "\nRecent conversation:")
		for _, m := range history {
			parts = append(parts, fmt.Sprintf("%s: %s", m.Role, m.Content))
		}
	}

	parts = append(parts, fmt.Sprintf("\nUser's response: %q", wc.UserInput))
	parts = append(parts, `
Respond with this JSON:
{
  "validated": true/false,
  "extracted_value": the value, an array of options for multi-select questions, or null,
  "confidence": 0.0-1.0,
  "ai_response": "a friendly, conversational reply",
  "requires_clarification": true/false
}`)

	return Prompt{System: systemPrompt, User: strings.Join(parts, "\n")}
}

type remoteResult struct {
	Validated             *bool       `json:"validated"`
	ExtractedValue        interface{} `json:"extracted_value"`
	Confidence            *float64    `json:"confidence"`
	AIResponse            string      `json:"ai_response"`
	RequiresClarification bool        `json:"requires_clarification"`
}

// parseRemoteResult decodes a provider reply and coerces the extracted value
// onto the question's declared shape. A validated value that cannot be
// coerced is an error so the caller falls back to local extraction.
func parseRemoteResult(q extract.Question, text string) (extract.Result, error) {
	cleaned := stripCodeFences(text)

	var raw remoteResult
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return extract.Result{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if raw.Validated == nil {
		return extract.Result{}, fmt.Errorf("%w: missing validated flag", ErrUnparseable)
	}

	confidence := 0.8
	if raw.Confidence != nil {
		confidence = *raw.Confidence
		if confidence < 0 || confidence > 1 {
			confidence = 0.5
		}
	}

	result := extract.Result{
		Validated:             *raw.Validated,
		Confidence:            confidence,
		AIResponse:            strings.TrimSpace(raw.AIResponse),
		RequiresClarification: raw.RequiresClarification,
	}

	if !result.Validated {
		result.RequiresClarification = true
		if result.AIResponse == "" {
			result.AIResponse = "I had trouble understanding that. Could you rephrase it?"
		}
		if q.IsChoice() {
			result.Suggestions = append([]string(nil), q.Options...)
		}
		return result, nil
	}

	value, err := coerceValue(q, raw.ExtractedValue)
	if err != nil {
		return extract.Result{}, err
	}
	result.ExtractedValue = value
	result.RequiresClarification = false
	if result.AIResponse == "" {
		result.AIResponse = "Got it!"
	}
	return result, nil
}

func coerceValue(q extract.Question, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: validated without a value", ErrUnparseable)
	}

	switch {
	case q.Type == extract.TypeNumber:
		var f float64
		switch t := v.(type) {
		case float64:
			f = t
		case string:
			r := extract.Extract(extract.Question{Field: q.Field, Type: extract.TypeNumber}, t)
			if !r.Validated {
				return nil, fmt.Errorf("%w: %q is not a number", ErrUnparseable, t)
			}
			return r.ExtractedValue, nil
		default:
			return nil, fmt.Errorf("%w: unexpected number value %T", ErrUnparseable, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: non-finite number", ErrUnparseable)
		}
		return int(math.Round(f)), nil

	case q.IsMulti():
		var items []interface{}
		switch t := v.(type) {
		case []interface{}:
			items = t
		case string:
			items = []interface{}{t}
		default:
			return nil, fmt.Errorf("%w: unexpected multi-select value %T", ErrUnparseable, v)
		}
		var out []string
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: non-string option", ErrUnparseable)
			}
			opt, ok := q.CanonicalOption(s)
			if !ok {
				return nil, fmt.Errorf("%w: %q is not an option", ErrUnparseable, s)
			}
			if !contains(out, opt) {
				out = append(out, opt)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: empty selection", ErrUnparseable)
		}
		return out, nil

	case q.IsChoice():
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected option value %T", ErrUnparseable, v)
		}
		opt, ok := q.CanonicalOption(s)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not an option", ErrUnparseable, s)
		}
		return opt, nil

	default:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		s = strings.TrimSpace(s)
		n := utf8.RuneCountInString(s)
		if q.MinLength != nil && n < *q.MinLength {
			return nil, fmt.Errorf("%w: shorter than %d characters", ErrUnparseable, *q.MinLength)
		}
		if q.MaxLength != nil && n > *q.MaxLength {
			return nil, fmt.Errorf("%w: longer than %d characters", ErrUnparseable, *q.MaxLength)
		}
		return s, nil
	}
}

func stripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
