// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored if not found
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from the likely run directories before falling
// back to system environment variables.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}
}

// applyDefaults fills in the fixed business heuristics and safe
// operational defaults for anything the config files leave unset.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "retention-workers"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Camunda.BrokerAddress == "" {
		cfg.Camunda.BrokerAddress = "localhost:26500"
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.UsageIndex == "" {
		cfg.Database.Elasticsearch.UsageIndex = "client-usage"
	}

	w := &cfg.Scoring.Weights
	if w.Sum() == 0 {
		*w = CategoryWeights{
			Usage:          0.25,
			Engagement:     0.20,
			Payment:        0.20,
			Support:        0.15,
			Competitive:    0.10,
			Organizational: 0.10,
		}
	}

	t := &cfg.Scoring.Thresholds
	if t.Critical == 0 && t.High == 0 && t.Medium == 0 && t.Low == 0 {
		*t = RiskThresholds{Critical: 0.80, High: 0.60, Medium: 0.40, Low: 0.20}
	}

	if cfg.Scoring.BatchSize == 0 {
		cfg.Scoring.BatchSize = 10
	}
	if cfg.Scoring.MinCategories == 0 {
		cfg.Scoring.MinCategories = 2
	}
	if cfg.Scoring.CacheTTL == 0 {
		cfg.Scoring.CacheTTL = 15 * time.Minute
	}
	if cfg.Scoring.RefreshInterval == 0 {
		cfg.Scoring.RefreshInterval = 7 * 24 * time.Hour
	}
	if cfg.Scoring.ModelVersion == "" {
		cfg.Scoring.ModelVersion = "weighted-category-v2"
	}
	if cfg.Scoring.LifetimeMonths == 0 {
		cfg.Scoring.LifetimeMonths = 36
	}

	if cfg.Playbooks.Critical.ResponseTime == "" {
		cfg.Playbooks.Critical = PlaybookConfig{
			ResponseTime:    "24 hours",
			EscalationLevel: "executive",
			ResourceTier:    "dedicated",
			Strategies: []string{
				"executive_sponsor_outreach",
				"dedicated_success_manager",
				"service_recovery_review",
			},
			Budget: 15000,
		}
	}
	if cfg.Playbooks.High.ResponseTime == "" {
		cfg.Playbooks.High = PlaybookConfig{
			ResponseTime:    "48 hours",
			EscalationLevel: "management",
			ResourceTier:    "priority",
			Strategies: []string{
				"proactive_account_review",
				"value_realization_workshop",
				"pricing_and_payment_review",
			},
			Budget: 7500,
		}
	}
	if cfg.Playbooks.Medium.ResponseTime == "" {
		cfg.Playbooks.Medium = PlaybookConfig{
			ResponseTime:    "1 week",
			EscalationLevel: "team_lead",
			ResourceTier:    "standard",
			Strategies: []string{
				"engagement_campaign",
				"feature_adoption_nudge",
				"quarterly_business_review",
			},
			Budget: 2500,
		}
	}

	if cfg.Integrations.CompetitiveFeed.Timeout == 0 {
		cfg.Integrations.CompetitiveFeed.Timeout = 5 * time.Second
	}
	if cfg.Integrations.CRM.BaseURL == "" {
		cfg.Integrations.CRM.BaseURL = "https://www.zohoapis.com/crm/v3"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Workers == nil {
		cfg.Workers = map[string]WorkerConfig{}
	}
	for _, taskType := range []string{
		"predict-churn",
		"batch-predict-churn",
		"create-retention-plan",
		"execute-retention-plan",
		"generate-churn-analytics",
	} {
		if _, ok := cfg.Workers[taskType]; !ok {
			cfg.Workers[taskType] = WorkerConfig{
				Enabled:       true,
				MaxJobsActive: 5,
				Timeout:       30000,
				MaxRetries:    3,
			}
		}
	}
}
