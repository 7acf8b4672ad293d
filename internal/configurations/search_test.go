package configurations

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "card-program-wizard/internal/common/errors"
)

func createTestSearchIndex(t *testing.T, handler http.HandlerFunc) *SearchIndex {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewSearchIndex(client, "")
}

func TestSearchIndex_Index(t *testing.T) {
	var got map[string]interface{}
	index := createTestSearchIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/card_configurations/_doc/cfg-1", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := index.Index(context.Background(), &Configuration{
		ID: "cfg-1", ProgramName: "Acme Fleet", ProgramType: "fleet",
		Client: &Client{Name: "Acme Ltd", Email: "ops@acme.example"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Fleet", got["program_name"])
	assert.Equal(t, "Acme Ltd", got["client_name"])
}

func TestSearchIndex_SearchIDs(t *testing.T) {
	index := createTestSearchIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/card_configurations/_search", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"query":"acme"`)
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":2},"hits":[{"_id":"cfg-2"},{"_id":"cfg-1"}]}}`))
	})

	ids, err := index.SearchIDs(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"cfg-2", "cfg-1"}, ids)
}

func TestSearchIndex_Errors(t *testing.T) {
	index := createTestSearchIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result":"not_found"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})

	_, err := index.SearchIDs(context.Background(), "acme")
	require.Error(t, err)
	stdErr, ok := commonerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeSearchQueryFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Error(t, index.Index(context.Background(), &Configuration{ID: "cfg-1"}))
	assert.NoError(t, index.Remove(context.Background(), "cfg-1"))
}
