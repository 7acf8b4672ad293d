package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-program-wizard/pkg/registry"
)

// ==========================
// Test Helper Functions
// ==========================

func runTool(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func createTestCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "configs", "questions.json")
	_, err := runTool(t, "export", "--path", path)
	require.NoError(t, err)
	return path
}

// ==========================
// Command Tests
// ==========================

func TestExportAndValidate(t *testing.T) {
	path := createTestCatalog(t)

	out, err := runTool(t, "validate", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 9 questions")

	out, err = runTool(t, "list", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "card_scheme")
}

func TestSet(t *testing.T) {
	path := createTestCatalog(t)

	_, err := runTool(t, "set", "program_name", "maxLength", "60", "--path", path)
	require.NoError(t, err)
	_, err = runTool(t, "set", "daily_limit", "required", "true", "--path", path)
	require.NoError(t, err)

	cat, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	q, ok := cat.QuestionByField("program_name")
	require.True(t, ok)
	assert.Equal(t, 60, *q.MaxLength)
	q, _ = cat.QuestionByField("daily_limit")
	assert.True(t, q.Required)
}

func TestSet_Errors(t *testing.T) {
	path := createTestCatalog(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown field", []string{"set", "loyalty_tier", "question", "x"}},
		{"unknown property", []string{"set", "currency", "colour", "red"}},
		{"bad number", []string{"set", "program_name", "minLength", "three"}},
		{"invalid result", []string{"set", "program_name", "minLength", "500"}},
		{"wrong arity", []string{"set", "currency"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runTool(t, append(tt.args, "--path", path)...)
			assert.Error(t, err)
		})
	}
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := runTool(t, "validate", "--path", filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
