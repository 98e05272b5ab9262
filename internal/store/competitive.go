// internal/store/competitive.go
package store

import (
	"context"
	"fmt"

	"retention-workers/internal/common/errors"
	"retention-workers/internal/common/httpx"
	"retention-workers/internal/models"
)

// CompetitiveFeedClient pulls per-client threat assessments from the
// external competitive-intelligence feed.
type CompetitiveFeedClient struct {
	baseURL string
	apiKey  string
	client  *httpx.Client
}

func NewCompetitiveFeedClient(baseURL, apiKey string, client *httpx.Client) *CompetitiveFeedClient {
	return &CompetitiveFeedClient{baseURL: baseURL, apiKey: apiKey, client: client}
}

type competitiveResponse struct {
	ThreatLevel float64  `json:"threatLevel"`
	Competitors []string `json:"competitors"`
	Evidence    []string `json:"evidence"`
}

func (c *CompetitiveFeedClient) GetIntel(ctx context.Context, clientID string) (*models.CompetitiveIntel, error) {
	url := fmt.Sprintf("%s/clients/%s/threat?api_key=%s", c.baseURL, clientID, c.apiKey)

	var resp competitiveResponse
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return nil, errors.NewDataUnavailableError("competitive", err)
	}

	return &models.CompetitiveIntel{
		ThreatLevel: resp.ThreatLevel,
		Competitors: resp.Competitors,
		Evidence:    resp.Evidence,
	}, nil
}
