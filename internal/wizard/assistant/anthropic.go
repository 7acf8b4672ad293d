package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"card-program-wizard/internal/common/config"
)

const anthropicVersion = "2023-06-01"

// Anthropic talks to the messages API.
type Anthropic struct {
	config config.LLMProviderConf
	client *http.Client
}

func NewAnthropic(cfg config.LLMProviderConf, client *http.Client) *Anthropic {
	if client == nil {
		client = &http.Client{}
	}
	return &Anthropic{config: cfg, client: client}
}

func (a *Anthropic) Name() string { return ProviderAnthropic }

func (a *Anthropic) Complete(ctx context.Context, p Prompt) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model":       a.config.Model,
		"max_tokens":  a.config.MaxTokens,
		"temperature": a.config.Temperature,
		"system":      p.System,
		"messages": []map[string]string{
			{"role": "user", "content": p.User},
		},
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(a.config.BaseURL, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &statusError{Provider: ProviderAnthropic, Status: resp.StatusCode, Body: string(msg)}
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	for _, block := range out.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic response has no text content")
}
