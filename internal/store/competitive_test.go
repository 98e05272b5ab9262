// internal/store/competitive_test.go
package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	commonerrors "retention-workers/internal/common/errors"
	"retention-workers/internal/common/httpx"
)

// ==========================
// Competitive Feed Tests
// ==========================

func TestCompetitiveFeedClient_GetIntel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/clients/client-123/threat", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"threatLevel": 0.65,
			"competitors": ["rival-suite"],
			"evidence": ["rfp_issued", "demo_scheduled"]
		}`))
	}))
	defer server.Close()

	feed := NewCompetitiveFeedClient(server.URL, "secret", httpx.NewClient(2*time.Second))
	intel, err := feed.GetIntel(context.Background(), "client-123")

	assert.NoError(t, err)
	assert.InDelta(t, 0.65, intel.ThreatLevel, 1e-9)
	assert.Equal(t, []string{"rival-suite"}, intel.Competitors)
	assert.Len(t, intel.Evidence, 2)
}

func TestCompetitiveFeedClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "feed down", http.StatusBadGateway)
	}))
	defer server.Close()

	feed := NewCompetitiveFeedClient(server.URL, "secret", httpx.NewClient(2*time.Second))
	intel, err := feed.GetIntel(context.Background(), "client-123")

	assert.Error(t, err)
	assert.Nil(t, intel)

	var stdErr *commonerrors.StandardError
	assert.ErrorAs(t, err, &stdErr)
	assert.Equal(t, commonerrors.ErrCodeDataUnavailable, stdErr.Code)
}

func TestCompetitiveFeedClient_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	feed := NewCompetitiveFeedClient(server.URL, "secret", httpx.NewClient(2*time.Second))
	_, err := feed.GetIntel(context.Background(), "client-123")

	assert.Error(t, err)
}
