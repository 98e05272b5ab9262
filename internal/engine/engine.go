// internal/engine/engine.go
package engine

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"retention-workers/internal/common/config"
	"retention-workers/internal/common/errors"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/common/metrics"
	"retention-workers/internal/engine/analytics"
	"retention-workers/internal/engine/behavior"
	"retention-workers/internal/engine/classify"
	"retention-workers/internal/engine/execution"
	"retention-workers/internal/engine/playbook"
	"retention-workers/internal/engine/scoring"
	"retention-workers/internal/engine/signals"
	"retention-workers/internal/models"
)

const (
	predictionCachePrefix = "churn:pred:"
	scoringAlgorithm      = "weighted-category"
)

// PredictionStore persists and retrieves churn predictions.
type PredictionStore interface {
	SavePrediction(ctx context.Context, p *models.ChurnPrediction) error
	GetPrediction(ctx context.Context, id string) (*models.ChurnPrediction, error)
	LatestPrediction(ctx context.Context, clientID string) (*models.ChurnPrediction, error)
	ClientIDs(ctx context.Context, orgID string) ([]string, error)
}

// PlanStore persists retention plans with an immutable transition log.
type PlanStore interface {
	SavePlan(ctx context.Context, p *models.RetentionPlan) error
	GetPlan(ctx context.Context, id string) (*models.RetentionPlan, error)
	TransitionPlan(ctx context.Context, id string, from, to models.PlanStatus, reason string) error
}

// Engine is the facade over the full prediction and retention pipeline.
// All configuration is immutable after construction; concurrent calls
// share no mutable state.
type Engine struct {
	cfg          *config.Config
	aggregator   *signals.Aggregator
	analyzer     *behavior.Analyzer
	model        *scoring.Model
	builder      *playbook.Builder
	orchestrator *execution.Orchestrator
	analytics    *analytics.Aggregator
	predictions  PredictionStore
	plans        PlanStore
	profiles     signals.ProfileStore
	cache        *redis.Client
	logger       logger.Logger
}

func New(
	cfg *config.Config,
	aggregator *signals.Aggregator,
	analyzer *behavior.Analyzer,
	model *scoring.Model,
	builder *playbook.Builder,
	orchestrator *execution.Orchestrator,
	analyticsAgg *analytics.Aggregator,
	predictions PredictionStore,
	plans PlanStore,
	profiles signals.ProfileStore,
	cache *redis.Client,
	log logger.Logger,
) *Engine {
	return &Engine{
		cfg:          cfg,
		aggregator:   aggregator,
		analyzer:     analyzer,
		model:        model,
		builder:      builder,
		orchestrator: orchestrator,
		analytics:    analyticsAgg,
		predictions:  predictions,
		plans:        plans,
		profiles:     profiles,
		cache:        cache,
		logger:       log,
	}
}

// Predict runs the full scoring pipeline for one client: fetch signals,
// derive factors and behavior, score, classify, persist, cache.
func (e *Engine) Predict(ctx context.Context, clientID string) (*models.ChurnPrediction, error) {
	start := time.Now()

	bundle, err := e.aggregator.Fetch(ctx, clientID)
	if err != nil {
		metrics.PredictionsFailed.WithLabelValues("DATA_UNAVAILABLE").Inc()
		return nil, err
	}

	factors := signals.DeriveRiskFactors(bundle)
	behavioralSignals, engagement, patterns := e.analyzer.Analyze(bundle)

	prior := e.priorPrediction(ctx, clientID)

	result := e.model.Score(factors, behavioralSignals, prior)

	level := classify.RiskLevelFor(result.Probability, e.cfg.Scoring.Thresholds)
	stage := classify.StageFor(factors, behavioralSignals)

	primary, secondary := splitFactors(factors)

	now := time.Now()
	prediction := &models.ChurnPrediction{
		ID:                   uuid.NewString(),
		ClientID:             clientID,
		OrganizationID:       bundle.Profile.OrganizationID,
		ChurnProbability:     result.Probability,
		RiskLevel:            level,
		LifecycleStage:       stage,
		DaysToChurn:          result.DaysToChurn,
		Confidence:           result.Confidence,
		RevenueAtRisk:        revenueAtRisk(bundle.Profile, e.cfg.Scoring.LifetimeMonths),
		ProfitAtRisk:         bundle.Profile.MonthlyRevenue * 12 * bundle.Profile.ProfitMargin,
		PrimaryRiskFactors:   primary,
		SecondaryRiskFactors: secondary,
		RiskTrend:            classify.RiskTrendFor(result.Probability, prior),
		BehavioralSignals:    behavioralSignals,
		Engagement:           engagement,
		UsagePatterns:        patterns,
		FeatureImportances:   result.Importances,
		DegradedSources:      bundle.DegradedSources,
		Model: models.ModelInfo{
			Algorithm:  scoringAlgorithm,
			Version:    e.cfg.Scoring.ModelVersion,
			Features:   categoryNames(),
			CreatedAt:  now,
			NextUpdate: now.Add(e.cfg.Scoring.RefreshInterval),
		},
		CreatedAt: now,
	}

	if err := e.predictions.SavePrediction(ctx, prediction); err != nil {
		metrics.PredictionsFailed.WithLabelValues("QUERY_EXECUTION_FAILED").Inc()
		return nil, err
	}
	e.cachePrediction(ctx, prediction)

	metrics.PredictionsComputed.WithLabelValues(string(level)).Inc()
	metrics.PredictionDuration.WithLabelValues(degradedLabel(bundle)).Observe(time.Since(start).Seconds())

	e.logger.Info("churn prediction computed", map[string]interface{}{
		"clientId":    clientID,
		"probability": result.Probability,
		"riskLevel":   level,
		"stage":       stage,
		"confidence":  result.Confidence,
		"degraded":    bundle.DegradedSources,
	})

	return prediction, nil
}

// BatchPredict scores every client in the organization, at most
// ScoringConfig.BatchSize concurrently. Individual client failures are
// logged and skipped; the batch returns what it could score.
func (e *Engine) BatchPredict(ctx context.Context, orgID string) ([]*models.ChurnPrediction, error) {
	start := time.Now()

	clientIDs, err := e.predictions.ClientIDs(ctx, orgID)
	if err != nil {
		return nil, err
	}

	sem := make(chan struct{}, e.cfg.Scoring.BatchSize)
	results := make([]*models.ChurnPrediction, len(clientIDs))
	var wg sync.WaitGroup

	for i, clientID := range clientIDs {
		wg.Add(1)
		go func(i int, clientID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			prediction, err := e.Predict(ctx, clientID)
			if err != nil {
				e.logger.Error("batch prediction failed for client", map[string]interface{}{
					"organizationId": orgID,
					"clientId":       clientID,
					"error":          err.Error(),
				})
				return
			}
			results[i] = prediction
		}(i, clientID)
	}
	wg.Wait()

	predictions := make([]*models.ChurnPrediction, 0, len(results))
	for _, p := range results {
		if p != nil {
			predictions = append(predictions, p)
		}
	}

	metrics.BatchPredictionDuration.Observe(time.Since(start).Seconds())

	e.logger.Info("batch prediction finished", map[string]interface{}{
		"organizationId": orgID,
		"clients":        len(clientIDs),
		"scored":         len(predictions),
	})

	return predictions, nil
}

// CreateRetentionPlan builds and persists a plan for an actionable
// prediction, assigned to the client's CSM.
func (e *Engine) CreateRetentionPlan(ctx context.Context, prediction *models.ChurnPrediction) (*models.RetentionPlan, error) {
	owner := ""
	if profile, err := e.profiles.GetProfile(ctx, prediction.ClientID); err == nil {
		owner = profile.AssignedCSM
	}

	plan, err := e.builder.Build(prediction, owner)
	if err != nil {
		return nil, err
	}

	if err := e.plans.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// ExecuteRetentionPlan loads the plan, runs its tactics, and records
// the resulting status transition. Plans already in a terminal status
// are rejected so a workflow retry cannot re-dispatch their tactics.
func (e *Engine) ExecuteRetentionPlan(ctx context.Context, planID string) (*models.ExecutionResult, error) {
	plan, err := e.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	if plan.Status == models.PlanCompleted || plan.Status == models.PlanFailed {
		return nil, errors.NewPlanAlreadyFinishedError(plan.ID, string(plan.Status))
	}

	if plan.Status == models.PlanPlanned {
		if err := e.plans.TransitionPlan(ctx, plan.ID, models.PlanPlanned, models.PlanActive, "execution started"); err != nil {
			return nil, err
		}
		plan.Status = models.PlanActive
	}

	result, err := e.orchestrator.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}

	// A plan left active would be re-executable, so a failed terminal
	// transition fails the job rather than being logged away.
	if err := e.plans.TransitionPlan(ctx, plan.ID, models.PlanActive, result.Status, "execution finished"); err != nil {
		return nil, errors.NewQueryExecutionFailedError("record plan transition", err)
	}

	return result, nil
}

// GenerateAnalytics computes a fresh period snapshot.
func (e *Engine) GenerateAnalytics(ctx context.Context, orgID string, period models.AnalyticsPeriod) (*models.ChurnAnalytics, error) {
	return e.analytics.Generate(ctx, orgID, period)
}

// GetPrediction reads one persisted prediction.
func (e *Engine) GetPrediction(ctx context.Context, id string) (*models.ChurnPrediction, error) {
	return e.predictions.GetPrediction(ctx, id)
}

// priorPrediction checks the cache first, then the store. A missing
// prior only weakens the consistency term of confidence.
func (e *Engine) priorPrediction(ctx context.Context, clientID string) *models.ChurnPrediction {
	if e.cache != nil {
		if raw, err := e.cache.Get(ctx, predictionCachePrefix+clientID).Result(); err == nil {
			var p models.ChurnPrediction
			if err := json.Unmarshal([]byte(raw), &p); err == nil {
				return &p
			}
		}
	}

	p, err := e.predictions.LatestPrediction(ctx, clientID)
	if err != nil {
		return nil
	}
	return p
}

func (e *Engine) cachePrediction(ctx context.Context, p *models.ChurnPrediction) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, predictionCachePrefix+p.ClientID, raw, e.cfg.Scoring.CacheTTL).Err(); err != nil {
		e.logger.Warn("failed to cache prediction", map[string]interface{}{
			"clientId": p.ClientID,
			"error":    err.Error(),
		})
	}
}

// splitFactors returns the top three factors by impact as primary, and
// the remainder in their original relative order as secondary.
func splitFactors(factors []models.ChurnRiskFactor) (primary, secondary []models.ChurnRiskFactor) {
	if len(factors) == 0 {
		return nil, nil
	}

	ranked := make([]models.ChurnRiskFactor, len(factors))
	copy(ranked, factors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Impact > ranked[j].Impact
	})

	n := 3
	if len(ranked) < n {
		n = len(ranked)
	}
	primary = ranked[:n]

	inPrimary := make(map[string]bool, n)
	for _, f := range primary {
		inPrimary[f.Factor] = true
	}
	for _, f := range factors {
		if !inPrimary[f.Factor] {
			secondary = append(secondary, f)
		}
	}
	return primary, secondary
}

func revenueAtRisk(profile models.ClientProfile, lifetimeMonths int) models.RevenueAtRisk {
	if lifetimeMonths <= 0 {
		lifetimeMonths = 36
	}
	return models.RevenueAtRisk{
		Monthly:  profile.MonthlyRevenue,
		Annual:   profile.MonthlyRevenue * 12,
		Lifetime: profile.MonthlyRevenue * float64(lifetimeMonths),
	}
}

func categoryNames() []string {
	names := make([]string, len(models.AllCategories))
	for i, c := range models.AllCategories {
		names[i] = string(c)
	}
	return names
}

func degradedLabel(bundle *models.SignalBundle) string {
	if len(bundle.DegradedSources) > 0 {
		return "true"
	}
	return "false"
}
