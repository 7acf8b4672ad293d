package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid request", NewInvalidRequestError("missing action"), http.StatusBadRequest},
		{"invalid configuration", NewInvalidConfigurationError("program_type", []string{"corporate"}), http.StatusBadRequest},
		{"not found", NewConfigurationNotFoundError("abc"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("get: %w", NewConfigurationNotFoundError("abc")), http.StatusNotFound},
		{"database missing", NewDatabaseNotConfiguredError(), http.StatusServiceUnavailable},
		{"auth", NewAuthenticationError("bad token"), http.StatusUnauthorized},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewDatabaseInsertFailedError(stderrors.New("duplicate key")))

	assert.Equal(t, "DATABASE_INSERT_FAILED", bpmn.Code)
	assert.True(t, bpmn.Retryable)
	assert.Equal(t, 3, bpmn.Retries)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "DATABASE_INSERT_FAILED", vars["errorCode"])
	assert.Equal(t, "DATABASE_INSERT_FAILED", vars["originalErrorCode"])
	assert.Equal(t, "duplicate key", vars["errorDetails"])
}

func TestConvertToBPMNError_NonRetryable(t *testing.T) {
	bpmn := ConvertToBPMNError(NewConfigurationNotFoundError("cfg-1"))
	assert.Equal(t, "CONFIGURATION_NOT_FOUND", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)
	assert.False(t, IsRetryableErrorCode(ErrCodeConfigurationNotFound))
}

func TestNormalize(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", NewValidationFailedError("Missing required fields", "program_name"))
	stdErr := Normalize(wrapped)
	require.NotNil(t, stdErr)
	assert.Equal(t, ErrCodeValidationFailed, stdErr.Code)

	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDatabaseQueryFailed))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeAssistantProviderFailed))
	assert.Equal(t, "NOT_FOUND", GetErrorCategory(ErrCodeConfigurationNotFound))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidConfiguration))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeTimeout))
}
