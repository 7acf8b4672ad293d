package evals

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"card-program-wizard/internal/wizard/assistant"
	"card-program-wizard/internal/wizard/extract"
)

// Target answers one validate turn.
type Target interface {
	Name() string
	Validate(ctx context.Context, provider string, q extract.Question, input string) (*assistant.Response, error)
}

// Local runs the assistant service in process.
type Local struct {
	svc *assistant.Service
}

func NewLocal(svc *assistant.Service) *Local {
	return &Local{svc: svc}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Validate(ctx context.Context, provider string, q extract.Question, input string) (*assistant.Response, error) {
	return l.svc.Handle(ctx, validateRequest(provider, q, input))
}

// HTTP posts turns to a deployed /api/ai-validate endpoint.
type HTTP struct {
	baseURL string
	client  *http.Client
}

func NewHTTP(baseURL string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (h *HTTP) Name() string { return h.baseURL }

// Health probes the schema endpoint. Any answer below 500 counts as
// available, since an auth-protected deployment still proves it is up.
func (h *HTTP) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/configurations/schema", nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("API not available at %s: %w", h.baseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("API returned server error %d", resp.StatusCode)
	}
	return nil
}

func (h *HTTP) Validate(ctx context.Context, provider string, q extract.Question, input string) (*assistant.Response, error) {
	body, err := json.Marshal(validateRequest(provider, q, input))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/ai-validate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return nil, fmt.Errorf("non-JSON response: %s", truncate(string(raw), 200))
	}

	var out assistant.Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func validateRequest(provider string, q extract.Question, input string) assistant.Request {
	return assistant.Request{
		Provider: provider,
		Action:   assistant.ActionValidate,
		Context: &assistant.Context{
			CurrentQuestion: q,
			UserInput:       input,
			CollectedData:   map[string]interface{}{},
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
