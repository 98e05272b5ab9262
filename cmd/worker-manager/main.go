// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"retention-workers/internal/common/aws"
	"retention-workers/internal/common/camunda"
	"retention-workers/internal/common/config"
	"retention-workers/internal/common/crm"
	"retention-workers/internal/common/database"
	"retention-workers/internal/common/httpx"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/common/observability"
	"retention-workers/internal/engine"
	"retention-workers/internal/engine/analytics"
	"retention-workers/internal/engine/behavior"
	"retention-workers/internal/engine/execution"
	"retention-workers/internal/engine/playbook"
	"retention-workers/internal/engine/scoring"
	"retention-workers/internal/engine/signals"
	"retention-workers/internal/models"
	"retention-workers/internal/store"

	gca "retention-workers/internal/workers/analytics/generate-churn-analytics"
	bpc "retention-workers/internal/workers/prediction/batch-predict-churn"
	pc "retention-workers/internal/workers/prediction/predict-churn"
	crp "retention-workers/internal/workers/retention/create-retention-plan"
	erp "retention-workers/internal/workers/retention/execute-retention-plan"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting retention worker manager...")

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init AWS messaging clients ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client failed", zap.Error(err))
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client failed", zap.Error(err))
	}

	crmClient := crm.NewClient(cfg.Integrations.CRM.BaseURL, cfg.Integrations.CRM.OAuthToken)
	httpClient := httpx.NewClient(cfg.Integrations.CompetitiveFeed.Timeout)

	zapLog.Info("All external service clients initialized")

	// --- Assemble the engine ---
	clients := store.NewClientStore(pg.DB)
	predictions := store.NewPredictionStore(pg.DB)
	plans := store.NewPlanStore(pg.DB)
	outcomes := store.NewOutcomeStore(pg.DB)
	usage := store.NewUsageStore(esClient.Client, cfg.Database.Elasticsearch.UsageIndex)
	competitive := store.NewCompetitiveFeedClient(
		cfg.Integrations.CompetitiveFeed.URL,
		cfg.Integrations.CompetitiveFeed.APIKey,
		httpClient,
	)

	aggregator := signals.NewAggregator(clients, usage, clients, clients, competitive, clients, log)
	analyzer := behavior.NewAnalyzer()
	model := scoring.NewModel(cfg.Scoring)
	builder := playbook.NewBuilder(cfg.Playbooks, log)

	notifier := execution.NewEscalationNotifier(
		snsClient, sesClient,
		cfg.Notifications.AWS.SNS.EscalationTopicARN,
		cfg.Notifications.AWS.SES.FromEmail,
		log,
	)
	orchestrator := execution.NewOrchestrator(
		[]execution.TacticHandler{
			execution.NewCommunicationHandler(sesClient, cfg.Notifications.AWS.SES.FromEmail, log),
			execution.NewServiceHandler(crmClient, log),
			execution.NewWebhookHandler(models.TacticProduct, cfg.Integrations.TacticEndpoints.Product, httpClient, log),
			execution.NewWebhookHandler(models.TacticPricing, cfg.Integrations.TacticEndpoints.Pricing, httpClient, log),
			execution.NewWebhookHandler(models.TacticTechnical, cfg.Integrations.TacticEndpoints.Technical, httpClient, log),
		},
		notifier,
		outcomes,
		func(level models.RiskLevel) string {
			switch level {
			case models.RiskLevelCritical:
				return cfg.Playbooks.Critical.EscalationLevel
			case models.RiskLevelHigh:
				return cfg.Playbooks.High.EscalationLevel
			default:
				return cfg.Playbooks.Medium.EscalationLevel
			}
		},
		log,
	)
	analyticsAgg := analytics.NewAggregator(outcomes, log)

	eng := engine.New(
		cfg, aggregator, analyzer, model, builder, orchestrator, analyticsAgg,
		predictions, plans, clients, redis.Client, log,
	)

	// --- Register workers ---
	var workers []*camunda.CamundaWorker
	register := func(taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler) {
		workers = append(workers, camunda.NewWorker(
			zeebeClient.GetClient(), taskType, wcfg.MaxJobsActive,
			time.Duration(wcfg.Timeout)*time.Millisecond, handler, zapLog,
		))
	}

	if wcfg := cfg.Workers[pc.TaskType]; wcfg.Enabled {
		register(pc.TaskType, wcfg, pc.NewHandler(
			&pc.Config{Timeout: time.Duration(wcfg.Timeout) * time.Millisecond},
			eng, log,
		))
	}

	if wcfg := cfg.Workers[bpc.TaskType]; wcfg.Enabled {
		register(bpc.TaskType, wcfg, bpc.NewHandler(
			&bpc.Config{Timeout: time.Duration(wcfg.Timeout) * time.Millisecond},
			eng, log,
		))
	}

	if wcfg := cfg.Workers[crp.TaskType]; wcfg.Enabled {
		register(crp.TaskType, wcfg, crp.NewHandler(
			&crp.Config{Timeout: time.Duration(wcfg.Timeout) * time.Millisecond},
			eng, log,
		))
	}

	if wcfg := cfg.Workers[erp.TaskType]; wcfg.Enabled {
		register(erp.TaskType, wcfg, erp.NewHandler(
			&erp.Config{Timeout: time.Duration(wcfg.Timeout) * time.Millisecond},
			eng, log,
		))
	}

	if wcfg := cfg.Workers[gca.TaskType]; wcfg.Enabled {
		register(gca.TaskType, wcfg, gca.NewHandler(
			&gca.Config{
				Timeout:           time.Duration(wcfg.Timeout) * time.Millisecond,
				DefaultPeriodDays: 30,
			},
			eng, log,
		))
	}

	zapLog.Info("All retention workers registered successfully")

	// --- Background re-scoring of stale predictions ---
	rescoreCtx, stopRescore := context.WithCancel(ctx)
	go rescoreStalePredictions(rescoreCtx, eng, predictions, obs, cfg.Scoring.BatchSize, zapLog)

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := zeebeClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	stopRescore()

	for _, w := range workers {
		w.Stop()
	}
	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// rescoreStalePredictions is a cooperative background loop: every hour
// it re-scores clients whose prediction's next_update has passed. Late
// re-scoring only degrades freshness; it never blocks worker traffic.
func rescoreStalePredictions(ctx context.Context, eng *engine.Engine, predictions *store.PredictionStore, obs *observability.Observability, batchSize int, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		clientIDs, err := predictions.StaleClients(ctx, batchSize)
		if err != nil {
			log.Warn("stale-client scan failed", zap.Error(err))
			continue
		}

		start := time.Now()
		for _, clientID := range clientIDs {
			if ctx.Err() != nil {
				return
			}
			p, err := eng.Predict(ctx, clientID)
			if err != nil {
				obs.RecordJobProcessed(ctx, "failed")
				log.Warn("background re-scoring failed",
					zap.String("clientId", clientID),
					zap.Error(err),
				)
				continue
			}
			obs.RecordJobProcessed(ctx, "completed")
			obs.RecordPrediction(ctx, string(p.RiskLevel), p.RevenueAtRisk.Annual)
		}

		if len(clientIDs) > 0 {
			obs.RecordJobDuration(ctx, time.Since(start), "rescore")
			log.Info("re-scored stale predictions", zap.Int("count", len(clientIDs)))
		}
	}
}

