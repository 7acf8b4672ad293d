package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const testCases = `
test_cases:
  - id: typo-scheme
    category: typo_correction
    description: Misspelt scheme
    step: card_scheme
    input: viza
    expected_validation: true
    expected_value: Visa
  - id: words-number
    category: validation
    description: Natural language number
    step: estimated_cards
    input: two hundred
    expected_value: 200
  - id: back
    category: commands
    step: currency
    input: go back
    expected_command: back
`

func createTestOptions(t *testing.T) *options {
	t.Helper()
	dir := t.TempDir()

	cases := filepath.Join(dir, "cases.yaml")
	require.NoError(t, os.WriteFile(cases, []byte(testCases), 0o644))
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("logging:\n  level: warn\n"), 0o644))

	return &options{
		casesPath:  cases,
		target:     "local",
		provider:   "local",
		outputDir:  filepath.Join(dir, "results"),
		threshold:  85,
		configPath: cfg,
	}
}

// ==========================
// Command Tests
// ==========================

func TestRun_LocalTargetPasses(t *testing.T) {
	opts := createTestOptions(t)
	opts.warmup = 2

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, opts))

	assert.Contains(t, out.String(), "Total: 3  Passed: 3")
	assert.Contains(t, out.String(), "Accuracy:                 100.0%")
	assert.FileExists(t, filepath.Join(opts.outputDir, "latest.json"))
}

func TestRun_BelowThresholdFails(t *testing.T) {
	opts := createTestOptions(t)
	require.NoError(t, os.WriteFile(opts.casesPath, []byte(`
test_cases:
  - id: wrong
    category: validation
    step: currency
    input: euros
    expected_value: USD
`), 0o644))

	var out bytes.Buffer
	err := run(context.Background(), &out, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below the 85.0% threshold")
	assert.Contains(t, out.String(), "[FAIL] wrong")
}

func TestRun_UnreachableAPISavesErrorResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	opts := createTestOptions(t)
	opts.target = "http"
	opts.apiURL = server.URL

	var out bytes.Buffer
	require.Error(t, run(context.Background(), &out, opts))
	assert.Contains(t, out.String(), "Error results saved to")
	assert.FileExists(t, filepath.Join(opts.outputDir, "latest.json"))
}

func TestRun_UnknownTarget(t *testing.T) {
	opts := createTestOptions(t)
	opts.target = "grpc"
	assert.Error(t, run(context.Background(), &bytes.Buffer{}, opts))
}

func TestRootCmd_Flags(t *testing.T) {
	t.Setenv("API_URL", "http://wizard.internal:9000")
	cmd := newRootCmd()

	url, err := cmd.Flags().GetString("api-url")
	require.NoError(t, err)
	assert.Equal(t, "http://wizard.internal:9000", url)

	threshold, err := cmd.Flags().GetFloat64("threshold")
	require.NoError(t, err)
	assert.Equal(t, 85.0, threshold)
}
