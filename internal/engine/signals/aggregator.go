// internal/engine/signals/aggregator.go
package signals

import (
	"context"
	"sync"
	"time"

	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

// Source names reported in SignalBundle.DegradedSources.
const (
	SourceProfile        = "profile"
	SourceUsage          = "usage"
	SourcePayments       = "payments"
	SourceSupport        = "support"
	SourceCompetitive    = "competitive"
	SourceOrganizational = "organizational"
)

// ProfileStore provides contract-level client records.
type ProfileStore interface {
	GetProfile(ctx context.Context, clientID string) (*models.ClientProfile, error)
}

// UsageStore provides pre-aggregated telemetry summaries.
type UsageStore interface {
	GetUsage(ctx context.Context, clientID string) (*models.UsageData, error)
}

// PaymentStore provides billing behavior summaries.
type PaymentStore interface {
	GetPayments(ctx context.Context, clientID string) (*models.PaymentHistory, error)
}

// SupportStore provides support-relationship summaries.
type SupportStore interface {
	GetSupport(ctx context.Context, clientID string) (*models.SupportHistory, error)
}

// CompetitiveFeed provides external competitive intelligence.
type CompetitiveFeed interface {
	GetIntel(ctx context.Context, clientID string) (*models.CompetitiveIntel, error)
}

// OrganizationalSource provides firm-level change signals.
type OrganizationalSource interface {
	GetOrganizational(ctx context.Context, clientID string) (*models.OrganizationalSignals, error)
}

// Aggregator fans out to every signal source concurrently and folds the
// results into one normalized bundle. A failing source marks the bundle
// degraded and contributes neutral defaults; it never aborts the other
// fetches.
type Aggregator struct {
	profiles    ProfileStore
	usage       UsageStore
	payments    PaymentStore
	support     SupportStore
	competitive CompetitiveFeed
	org         OrganizationalSource
	logger      logger.Logger
}

func NewAggregator(
	profiles ProfileStore,
	usage UsageStore,
	payments PaymentStore,
	support SupportStore,
	competitive CompetitiveFeed,
	org OrganizationalSource,
	log logger.Logger,
) *Aggregator {
	return &Aggregator{
		profiles:    profiles,
		usage:       usage,
		payments:    payments,
		support:     support,
		competitive: competitive,
		org:         org,
		logger:      log,
	}
}

// Fetch collects all signals for one client. The profile fetch is the
// only fatal one: without a profile there is no client to score. Every
// other source degrades to neutral defaults.
func (a *Aggregator) Fetch(ctx context.Context, clientID string) (*models.SignalBundle, error) {
	profile, err := a.profiles.GetProfile(ctx, clientID)
	if err != nil {
		return nil, err
	}

	bundle := &models.SignalBundle{
		Profile:        *profile,
		Usage:          neutralUsage(),
		Payments:       neutralPayments(),
		Support:        neutralSupport(),
		Competitive:    neutralCompetitive(),
		Organizational: neutralOrganizational(),
		FetchedAt:      time.Now(),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	degrade := func(source string, err error) {
		mu.Lock()
		bundle.DegradedSources = append(bundle.DegradedSources, source)
		mu.Unlock()
		a.logger.Warn("signal source unavailable, degrading", map[string]interface{}{
			"clientId": clientID,
			"source":   source,
			"error":    err.Error(),
		})
	}

	wg.Add(5)

	go func() {
		defer wg.Done()
		usage, err := a.usage.GetUsage(ctx, clientID)
		if err != nil {
			degrade(SourceUsage, err)
			return
		}
		mu.Lock()
		bundle.Usage = *usage
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		payments, err := a.payments.GetPayments(ctx, clientID)
		if err != nil {
			degrade(SourcePayments, err)
			return
		}
		mu.Lock()
		bundle.Payments = *payments
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		support, err := a.support.GetSupport(ctx, clientID)
		if err != nil {
			degrade(SourceSupport, err)
			return
		}
		mu.Lock()
		bundle.Support = *support
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		intel, err := a.competitive.GetIntel(ctx, clientID)
		if err != nil {
			degrade(SourceCompetitive, err)
			return
		}
		mu.Lock()
		bundle.Competitive = *intel
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		org, err := a.org.GetOrganizational(ctx, clientID)
		if err != nil {
			degrade(SourceOrganizational, err)
			return
		}
		mu.Lock()
		bundle.Organizational = *org
		mu.Unlock()
	}()

	wg.Wait()

	return bundle, nil
}

// Neutral defaults: values that contribute no risk on their own, so a
// degraded prediction errs toward under-reporting rather than inventing
// risk from missing data.

func neutralUsage() models.UsageData {
	return models.UsageData{
		ObservedMonth: time.Now().Month(),
	}
}

func neutralPayments() models.PaymentHistory {
	return models.PaymentHistory{
		OnTimeRate: 1.0,
		Trend:      models.TrendStable,
	}
}

func neutralSupport() models.SupportHistory {
	return models.SupportHistory{
		SatisfactionScore: 0.75,
		Trend:             models.TrendStable,
	}
}

func neutralCompetitive() models.CompetitiveIntel {
	return models.CompetitiveIntel{ThreatLevel: 0}
}

func neutralOrganizational() models.OrganizationalSignals {
	return models.OrganizationalSignals{HeadcountTrend: models.TrendStable}
}
