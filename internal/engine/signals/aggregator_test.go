// internal/engine/signals/aggregator_test.go
package signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

// ==========================
// Mock Signal Sources
// ==========================

type mockProfileStore struct {
	profile *models.ClientProfile
	err     error
}

func (m *mockProfileStore) GetProfile(ctx context.Context, clientID string) (*models.ClientProfile, error) {
	return m.profile, m.err
}

type mockUsageStore struct {
	usage *models.UsageData
	err   error
}

func (m *mockUsageStore) GetUsage(ctx context.Context, clientID string) (*models.UsageData, error) {
	return m.usage, m.err
}

type mockPaymentStore struct {
	payments *models.PaymentHistory
	err      error
}

func (m *mockPaymentStore) GetPayments(ctx context.Context, clientID string) (*models.PaymentHistory, error) {
	return m.payments, m.err
}

type mockSupportStore struct {
	support *models.SupportHistory
	err     error
}

func (m *mockSupportStore) GetSupport(ctx context.Context, clientID string) (*models.SupportHistory, error) {
	return m.support, m.err
}

type mockCompetitiveFeed struct {
	intel *models.CompetitiveIntel
	err   error
}

func (m *mockCompetitiveFeed) GetIntel(ctx context.Context, clientID string) (*models.CompetitiveIntel, error) {
	return m.intel, m.err
}

type mockOrgSource struct {
	signals *models.OrganizationalSignals
	err     error
}

func (m *mockOrgSource) GetOrganizational(ctx context.Context, clientID string) (*models.OrganizationalSignals, error) {
	return m.signals, m.err
}

// ==========================
// Test Helper Functions
// ==========================

func createTestAggregator(t *testing.T, profiles *mockProfileStore, usage *mockUsageStore, payments *mockPaymentStore, support *mockSupportStore, feed *mockCompetitiveFeed, org *mockOrgSource) *Aggregator {
	return NewAggregator(profiles, usage, payments, support, feed, org, logger.NewTestLogger(t))
}

func healthySources() (*mockProfileStore, *mockUsageStore, *mockPaymentStore, *mockSupportStore, *mockCompetitiveFeed, *mockOrgSource) {
	return &mockProfileStore{profile: &models.ClientProfile{ClientID: "client-123", MonthlyRevenue: 2500}},
		&mockUsageStore{usage: &models.UsageData{LoginsPerWeek: 4, HistoricalLogins: 4, ObservedMonth: time.October}},
		&mockPaymentStore{payments: &models.PaymentHistory{OnTimeRate: 0.97, Trend: models.TrendStable}},
		&mockSupportStore{support: &models.SupportHistory{SatisfactionScore: 0.8}},
		&mockCompetitiveFeed{intel: &models.CompetitiveIntel{ThreatLevel: 0.1}},
		&mockOrgSource{signals: &models.OrganizationalSignals{HeadcountTrend: models.TrendStable}}
}

// ==========================
// Aggregation Tests
// ==========================

func TestAggregator_Fetch_AllSourcesHealthy(t *testing.T) {
	profiles, usage, payments, support, feed, org := healthySources()
	agg := createTestAggregator(t, profiles, usage, payments, support, feed, org)

	bundle, err := agg.Fetch(context.Background(), "client-123")

	assert.NoError(t, err)
	assert.Equal(t, "client-123", bundle.Profile.ClientID)
	assert.Empty(t, bundle.DegradedSources)
	assert.InDelta(t, 0.97, bundle.Payments.OnTimeRate, 1e-9)
	assert.InDelta(t, 0.8, bundle.Support.SatisfactionScore, 1e-9)
	assert.False(t, bundle.FetchedAt.IsZero())
}

func TestAggregator_Fetch_ProfileFailureIsFatal(t *testing.T) {
	profiles, usage, payments, support, feed, org := healthySources()
	profiles.err = errors.New("client not found")
	profiles.profile = nil

	agg := createTestAggregator(t, profiles, usage, payments, support, feed, org)

	bundle, err := agg.Fetch(context.Background(), "missing-client")
	assert.Error(t, err)
	assert.Nil(t, bundle)
}

func TestAggregator_Fetch_DegradedSources(t *testing.T) {
	tests := []struct {
		name     string
		break_   func(*mockUsageStore, *mockPaymentStore, *mockSupportStore, *mockCompetitiveFeed, *mockOrgSource)
		degraded []string
		validate func(t *testing.T, bundle *models.SignalBundle)
	}{
		{
			name: "usage source down",
			break_: func(u *mockUsageStore, p *mockPaymentStore, s *mockSupportStore, f *mockCompetitiveFeed, o *mockOrgSource) {
				u.err = errors.New("es timeout")
				u.usage = nil
			},
			degraded: []string{SourceUsage},
		},
		{
			name: "payments source down yields neutral on-time rate",
			break_: func(u *mockUsageStore, p *mockPaymentStore, s *mockSupportStore, f *mockCompetitiveFeed, o *mockOrgSource) {
				p.err = errors.New("db down")
				p.payments = nil
			},
			degraded: []string{SourcePayments},
			validate: func(t *testing.T, bundle *models.SignalBundle) {
				assert.InDelta(t, 1.0, bundle.Payments.OnTimeRate, 1e-9)
			},
		},
		{
			name: "support source down yields neutral satisfaction",
			break_: func(u *mockUsageStore, p *mockPaymentStore, s *mockSupportStore, f *mockCompetitiveFeed, o *mockOrgSource) {
				s.err = errors.New("db down")
				s.support = nil
			},
			degraded: []string{SourceSupport},
			validate: func(t *testing.T, bundle *models.SignalBundle) {
				assert.InDelta(t, 0.75, bundle.Support.SatisfactionScore, 1e-9)
			},
		},
		{
			name: "competitive feed down yields zero threat",
			break_: func(u *mockUsageStore, p *mockPaymentStore, s *mockSupportStore, f *mockCompetitiveFeed, o *mockOrgSource) {
				f.err = errors.New("feed unreachable")
				f.intel = nil
			},
			degraded: []string{SourceCompetitive},
			validate: func(t *testing.T, bundle *models.SignalBundle) {
				assert.Zero(t, bundle.Competitive.ThreatLevel)
			},
		},
		{
			name: "all optional sources down",
			break_: func(u *mockUsageStore, p *mockPaymentStore, s *mockSupportStore, f *mockCompetitiveFeed, o *mockOrgSource) {
				u.err = errors.New("down")
				p.err = errors.New("down")
				s.err = errors.New("down")
				f.err = errors.New("down")
				o.err = errors.New("down")
			},
			degraded: []string{SourceUsage, SourcePayments, SourceSupport, SourceCompetitive, SourceOrganizational},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles, usage, payments, support, feed, org := healthySources()
			tt.break_(usage, payments, support, feed, org)

			agg := createTestAggregator(t, profiles, usage, payments, support, feed, org)
			bundle, err := agg.Fetch(context.Background(), "client-123")

			assert.NoError(t, err)
			assert.Len(t, bundle.DegradedSources, len(tt.degraded))
			for _, src := range tt.degraded {
				assert.True(t, bundle.Degraded(src), "expected %s degraded", src)
			}
			if tt.validate != nil {
				tt.validate(t, bundle)
			}
		})
	}
}

// Neutral defaults must not produce risk factors on their own: a fully
// degraded bundle scores from silence, not from invented risk.
func TestDeriveRiskFactors_NeutralDefaultsProduceNoFactors(t *testing.T) {
	profiles, usage, payments, support, feed, org := healthySources()
	usage.err = errors.New("down")
	payments.err = errors.New("down")
	support.err = errors.New("down")
	feed.err = errors.New("down")
	org.err = errors.New("down")

	agg := createTestAggregator(t, profiles, usage, payments, support, feed, org)
	bundle, err := agg.Fetch(context.Background(), "client-123")
	assert.NoError(t, err)

	factors := DeriveRiskFactors(bundle)
	assert.Empty(t, factors)
}
