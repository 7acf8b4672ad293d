// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-program-wizard/internal/analytics"
	"card-program-wizard/internal/api"
	"card-program-wizard/internal/common/config"
	"card-program-wizard/internal/common/logger"
	"card-program-wizard/internal/configurations"
	"card-program-wizard/internal/feedback"
	"card-program-wizard/internal/notify"
	"card-program-wizard/internal/program"
	"card-program-wizard/internal/wizard/assistant"
	"card-program-wizard/pkg/registry"
)

// ==========================
// Test Environment
// ==========================

type testEnv struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
}

// createTestEnv serves the full API over a miniredis-backed program cache and
// event log. Postgres stays unconfigured.
func createTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewTestLogger(t)
	analyticsCfg := config.AnalyticsConfig{RedisKey: "abtest:events", MaxEvents: 100, RecentLimit: 10}

	deps := api.Dependencies{
		Assistant:      assistant.NewService(config.AssistantConfig{DefaultProvider: assistant.ProviderLocal}, log),
		Configurations: configurations.NewService(nil, log),
		Analytics:      analytics.NewRecorder(analytics.NewRedisStore(rdb, analyticsCfg.RedisKey, analyticsCfg.MaxEvents), analyticsCfg, log),
		Feedback:       feedback.NewService(nil, nil, notify.Nop{}, log),
		Programs:       program.NewService(rdb, program.DefaultTTL, log),
		Catalog:        registry.Default(),
		ReadinessChecks: map[string]api.Check{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	}

	server := httptest.NewServer(api.NewRouter(api.NewHandler(deps, config.ServerConfig{}, log)))
	t.Cleanup(server.Close)

	return &testEnv{server: server, redis: mr}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// ==========================
// Wizard Flow Tests
// ==========================

func TestWizardFlow_AnswersToProgram(t *testing.T) {
	env := createTestEnv(t)

	var questions struct {
		Success bool                     `json:"success"`
		Data    registry.QuestionCatalog `json:"data"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/questions", nil, &questions))
	require.Len(t, questions.Data.Questions, 9)

	answers := map[string]string{
		"program_name":    "Acme Travel Cards",
		"program_type":    "corprate",
		"funding_model":   "we need prepaid cards",
		"form_factor":     "plastic and mobile",
		"card_scheme":     "viza",
		"currency":        "Our HQ is in London",
		"estimated_cards": "two hundred",
		"daily_limit":     "5 thousand",
		"monthly_limit":   "20,000",
	}

	collected := map[string]interface{}{}
	for _, q := range questions.Data.Questions {
		var resp assistant.Response
		status := env.do(t, http.MethodPost, "/api/ai-validate", assistant.Request{
			Action: assistant.ActionValidate,
			Context: &assistant.Context{
				CurrentQuestion: q.Extract(),
				UserInput:       answers[q.Field],
				CollectedData:   collected,
			},
		}, &resp)

		require.Equal(t, http.StatusOK, status, q.Field)
		require.True(t, resp.Validated, "%s: %s", q.Field, resp.AIResponse)
		assert.False(t, resp.IsCommand, q.Field)
		collected[q.Field] = resp.ExtractedValue
	}

	assert.Equal(t, "corporate", collected["program_type"])
	assert.Equal(t, "Visa", collected["card_scheme"])
	assert.Equal(t, "GBP", collected["currency"])
	assert.Equal(t, float64(200), collected["estimated_cards"])
	assert.ElementsMatch(t, []interface{}{"physical", "tokenized"}, collected["form_factor"])

	formFactors := []string{}
	for _, f := range collected["form_factor"].([]interface{}) {
		formFactors = append(formFactors, f.(string))
	}

	var created struct {
		Success bool            `json:"success"`
		Data    program.Program `json:"data"`
	}
	status := env.do(t, http.MethodPost, "/api/card-program", program.Request{
		Name:           collected["program_name"].(string),
		Type:           collected["program_type"].(string),
		FundingModel:   collected["funding_model"].(string),
		Scheme:         collected["card_scheme"].(string),
		Currency:       collected["currency"].(string),
		EstimatedCards: int(collected["estimated_cards"].(float64)),
		DailyLimit:     collected["daily_limit"].(float64),
		MonthlyLimit:   collected["monthly_limit"].(float64),
		FormFactor:     formFactors,
	}, &created)

	require.Equal(t, http.StatusCreated, status)
	require.True(t, created.Success)
	assert.Equal(t, program.StatusActive, created.Data.Status)
	assert.Equal(t, "GBP", created.Data.Pricing.Currency)
	assert.True(t, env.redis.Exists("wizard:program:"+created.Data.ProgramID))

	var fetched struct {
		Data program.Program `json:"data"`
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/card-program?programId="+created.Data.ProgramID, nil, &fetched))
	assert.False(t, fetched.Data.Mock)
	assert.Equal(t, created.Data.ProgramID, fetched.Data.ProgramID)
	assert.Equal(t, "Acme Travel Cards", fetched.Data.Program.Name)
}

func TestWizardFlow_NavigationCommands(t *testing.T) {
	env := createTestEnv(t)
	q, ok := registry.Default().QuestionByField("currency")
	require.True(t, ok)

	tests := []struct {
		input   string
		command string
	}{
		{"go back please", "back"},
		{"what do we have so far", "summary"},
		{"Let's start over", "reset"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			var resp assistant.Response
			status := env.do(t, http.MethodPost, "/api/ai-validate", assistant.Request{
				Action: assistant.ActionValidate,
				Context: &assistant.Context{
					CurrentQuestion: q.Extract(),
					UserInput:       tt.input,
					CollectedData:   map[string]interface{}{"program_name": "Acme"},
				},
			}, &resp)

			require.Equal(t, http.StatusOK, status)
			assert.True(t, resp.IsCommand)
			assert.Equal(t, tt.command, resp.Command)
		})
	}
}

// ==========================
// Analytics Flow Tests
// ==========================

func TestAnalyticsFlow_EventsToReport(t *testing.T) {
	env := createTestEnv(t)

	events := []analytics.Event{
		{"eventType": "impression", "ctaVariant": "A", "pricingVariant": "live"},
		{"eventType": "impression", "ctaVariant": "A", "pricingVariant": "live"},
		{"eventType": "click", "ctaVariant": "A", "pricingVariant": "live"},
		{"eventType": "impression", "ctaVariant": "B", "pricingVariant": "final"},
	}
	for _, e := range events {
		var res analytics.RecordResult
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/events", e, &res))
		assert.True(t, res.Success)
		assert.False(t, res.Fallback)
	}

	var rep analytics.Report
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/analytics", nil, &rep))
	assert.Equal(t, 4, rep.TotalEvents)
	assert.Equal(t, 2, rep.Summary["Alive"].Impressions)
	assert.Equal(t, 1, rep.Summary["Alive"].Clicks)
	assert.Equal(t, 1, rep.Summary["Bfinal"].Impressions)
	assert.Equal(t, 3, rep.Funnel.Impressions)
}

// ==========================
// Platform Endpoint Tests
// ==========================

func TestPlatformEndpoints(t *testing.T) {
	env := createTestEnv(t)

	var ready map[string]interface{}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/ready", nil, &ready))
	assert.Equal(t, "ready", ready["status"])

	var errBody map[string]interface{}
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/api/configurations", nil, &errBody))
	assert.Equal(t, false, errBody["success"])

	env.redis.Close()
	require.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/ready", nil, &ready))
	assert.Equal(t, "not_ready", ready["status"])
}
