// internal/store/usage_es.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"retention-workers/internal/common/errors"
	"retention-workers/internal/models"
)

// UsageStore reads per-client telemetry summaries from the usage index.
// Summaries are written by the ingestion pipeline as one rolling
// document per client per day; the latest one is the current picture.
type UsageStore struct {
	client *elasticsearch.Client
	index  string
}

func NewUsageStore(client *elasticsearch.Client, index string) *UsageStore {
	return &UsageStore{client: client, index: index}
}

type usageSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.UsageData `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *UsageStore) GetUsage(ctx context.Context, clientID string) (*models.UsageData, error) {
	query := map[string]interface{}{
		"size": 1,
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"clientId": clientID,
			},
		},
		"sort": []map[string]interface{}{
			{"summarizedAt": map[string]string{"order": "desc"}},
		},
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(query); err != nil {
		return nil, errors.NewUsageStoreFailedError(err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&body),
	)
	if err != nil {
		return nil, errors.NewUsageStoreFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewUsageStoreFailedError(
			fmt.Errorf("usage search failed: %s", res.Status()))
	}

	var parsed usageSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewUsageStoreFailedError(err)
	}

	if len(parsed.Hits.Hits) == 0 {
		return nil, errors.NewDataUnavailableError("usage",
			fmt.Errorf("no usage summary for client %s", clientID))
	}

	usage := parsed.Hits.Hits[0].Source
	return &usage, nil
}
