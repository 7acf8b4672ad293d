package configurations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"card-program-wizard/internal/common/errors"
)

// Indexer mirrors configurations into a full-text search index.
type Indexer interface {
	Index(ctx context.Context, cfg *Configuration) error
	Remove(ctx context.Context, id string) error
	SearchIDs(ctx context.Context, query string) ([]string, error)
}

const maxSearchHits = 1000

// IndexMapping is the mapping used when the configuration index is created.
const IndexMapping = `{
	"mappings": {
		"properties": {
			"program_name":  {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"program_type":  {"type": "keyword"},
			"status":        {"type": "keyword"},
			"funding_model": {"type": "keyword"},
			"form_factors":  {"type": "keyword"},
			"card_scheme":   {"type": "keyword"},
			"currency":      {"type": "keyword"},
			"client_name":   {"type": "text"},
			"client_email":  {"type": "keyword"},
			"created_at":    {"type": "date"}
		}
	}
}`

type indexDocument struct {
	ProgramName  string    `json:"program_name"`
	ProgramType  string    `json:"program_type"`
	Status       string    `json:"status"`
	FundingModel string    `json:"funding_model"`
	FormFactors  []string  `json:"form_factors"`
	CardScheme   string    `json:"card_scheme"`
	Currency     string    `json:"currency"`
	ClientName   string    `json:"client_name,omitempty"`
	ClientEmail  string    `json:"client_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type SearchIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewSearchIndex(client *elasticsearch.Client, index string) *SearchIndex {
	if index == "" {
		index = "card_configurations"
	}
	return &SearchIndex{client: client, index: index}
}

func (s *SearchIndex) Index(ctx context.Context, cfg *Configuration) error {
	doc := indexDocument{
		ProgramName:  cfg.ProgramName,
		ProgramType:  cfg.ProgramType,
		Status:       cfg.Status,
		FundingModel: cfg.FundingModel,
		FormFactors:  cfg.FormFactors,
		CardScheme:   cfg.CardScheme,
		Currency:     cfg.Currency,
		CreatedAt:    cfg.CreatedAt,
	}
	if cfg.Client != nil {
		doc.ClientName = cfg.Client.Name
		doc.ClientEmail = cfg.Client.Email
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal index document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: cfg.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index document failed: %s", res.String())
	}
	return nil
}

// Remove deletes a document. A document that is already gone is not an error.
func (s *SearchIndex) Remove(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: s.index, DocumentID: id}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete document failed: %s", res.String())
	}
	return nil
}

// SearchIDs returns the ids of configurations matching query, best match first.
func (s *SearchIndex) SearchIDs(ctx context.Context, query string) ([]string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"_source": false,
		"size":    maxSearchHits,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"program_name^3", "client_name^2", "program_type", "card_scheme", "funding_model", "form_factors", "currency"},
				"fuzziness": "AUTO",
			},
		},
	})
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(s.index, fmt.Errorf("status %s", res.Status()))
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, errors.NewSearchQueryFailedError(s.index, fmt.Errorf("decode search response: %w", err))
	}

	ids := make([]string, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
