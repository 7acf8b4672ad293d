package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
app:
  name: card-program-wizard
  environment: test
server:
  address: ":8081"
logging:
  level: debug
  format: console
`

// ==========================
// LoadFromFile Tests
// ==========================

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Address)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "local", cfg.Assistant.DefaultProvider)
	assert.Equal(t, 15000, cfg.Assistant.Timeout)
	assert.Equal(t, "gpt-4-turbo-preview", cfg.Assistant.OpenAI.Model)
	assert.Equal(t, 300, cfg.Assistant.OpenAI.MaxTokens)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Assistant.Anthropic.Model)
	assert.Equal(t, "abtest:events", cfg.Analytics.RedisKey)
	assert.Equal(t, 10000, cfg.Analytics.MaxEvents)
	assert.Equal(t, 100, cfg.Analytics.RecentLimit)
	assert.Equal(t, "card_configurations", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, "card-program-wizard", cfg.Observability.ServiceName)

	assert.False(t, cfg.Database.Postgres.Enabled())
	assert.False(t, cfg.Database.Redis.Enabled())
	assert.False(t, cfg.Camunda.Enabled())
}

func TestLoadFromFile_EnvironmentOverride(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9999")
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig+`
assistant:
  default_provider: openai
  openai:
    api_key: ${TEST_OPENAI_KEY}
`))
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "sk-from-env", cfg.Assistant.OpenAI.APIKey)
	assert.True(t, cfg.Assistant.OpenAI.Enabled())
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig+`
camunda:
  broker_address: localhost:26500
workers:
  validate-answer:
    enabled: true
`))
	require.NoError(t, err)

	w := GetWorkerConfig(cfg, "validate-answer")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
	assert.True(t, IsWorkerEnabled(cfg, "validate-answer"))
	assert.False(t, IsWorkerEnabled(cfg, "create-configuration"))
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{
			name:     "unknown provider",
			body:     minimalConfig + "assistant:\n  default_provider: mistral\n",
			contains: "default_provider",
		},
		{
			name:     "postgres without database",
			body:     minimalConfig + "database:\n  postgres:\n    host: localhost\n    user: wizard\n",
			contains: "database.postgres.database",
		},
		{
			name:     "worker without broker",
			body:     minimalConfig + "workers:\n  validate-answer:\n    enabled: true\n",
			contains: "camunda.broker_address",
		},
		{
			name:     "sns without topic",
			body:     minimalConfig + "notifications:\n  aws:\n    sns:\n      enabled: true\n",
			contains: "topic_arn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfigFile(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "wizard", Password: "pw", Database: "cards", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=wizard password=pw dbname=cards sslmode=disable", p.GetDSN())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
