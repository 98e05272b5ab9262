// internal/common/config/config.go
package config

import (
	"fmt"
	"math"
	"time"
)

// Config is the main application configuration struct. Everything in
// here is constructed once at process start and passed by reference
// into the engine; nothing is mutated afterwards.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Scoring       ScoringConfig           `mapstructure:"scoring"`
	Playbooks     PlaybooksConfig         `mapstructure:"playbooks"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	UsageIndex string   `mapstructure:"usage_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Scoring Configuration ---

// CategoryWeights are the fixed per-category weights combined into the
// base churn probability. They must sum to 1.0.
type CategoryWeights struct {
	Usage          float64 `mapstructure:"usage"`
	Engagement     float64 `mapstructure:"engagement"`
	Payment        float64 `mapstructure:"payment"`
	Support        float64 `mapstructure:"support"`
	Competitive    float64 `mapstructure:"competitive"`
	Organizational float64 `mapstructure:"organizational"`
}

// Sum returns the total of all category weights.
func (w CategoryWeights) Sum() float64 {
	return w.Usage + w.Engagement + w.Payment + w.Support + w.Competitive + w.Organizational
}

// RiskThresholds are the lower probability bounds per risk level.
// They must be strictly decreasing within (0,1); anything below Low is
// minimal.
type RiskThresholds struct {
	Critical float64 `mapstructure:"critical"`
	High     float64 `mapstructure:"high"`
	Medium   float64 `mapstructure:"medium"`
	Low      float64 `mapstructure:"low"`
}

type ScoringConfig struct {
	Weights          CategoryWeights `mapstructure:"weights"`
	Thresholds       RiskThresholds  `mapstructure:"thresholds"`
	BatchSize        int             `mapstructure:"batch_size"`        // concurrent clients per batch
	MinCategories    int             `mapstructure:"min_categories"`    // below this -> insufficient data
	CacheTTL         time.Duration   `mapstructure:"cache_ttl"`         // latest-prediction cache
	RefreshInterval  time.Duration   `mapstructure:"refresh_interval"`  // model nextUpdate horizon
	ModelVersion     string          `mapstructure:"model_version"`
	LifetimeMonths   int             `mapstructure:"lifetime_months"`   // horizon for lifetime revenue at risk
}

// --- Playbook Configuration ---

// PlaybookConfig is one risk level's response template.
type PlaybookConfig struct {
	ResponseTime    string   `mapstructure:"response_time"`
	EscalationLevel string   `mapstructure:"escalation_level"`
	ResourceTier    string   `mapstructure:"resource_tier"`
	Strategies      []string `mapstructure:"strategies"`
	Budget          float64  `mapstructure:"budget"`
}

type PlaybooksConfig struct {
	Critical PlaybookConfig `mapstructure:"critical"`
	High     PlaybookConfig `mapstructure:"high"`
	Medium   PlaybookConfig `mapstructure:"medium"`
}

// --- Integrations ---

// IntegrationConfig holds settings for the competitive-intel feed, the
// CRM, and tactic webhook endpoints.
type IntegrationConfig struct {
	CompetitiveFeed struct {
		URL     string        `mapstructure:"url"`
		APIKey  string        `mapstructure:"api_key"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"competitive_feed"`

	CRM struct {
		OAuthToken string `mapstructure:"oauth_token"`
		BaseURL    string `mapstructure:"base_url"`
	} `mapstructure:"crm"`

	TacticEndpoints struct {
		Product   string `mapstructure:"product"`
		Pricing   string `mapstructure:"pricing"`
		Technical string `mapstructure:"technical"`
	} `mapstructure:"tactic_endpoints"`
}

type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled             bool   `mapstructure:"enabled"`
			EscalationTopicARN  string `mapstructure:"escalation_topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate fails fast on configuration the engine must never run with:
// non-monotonic risk thresholds, weights that do not sum to 1, or
// playbooks missing their SLA. Checked at startup, not at prediction
// time.
func (c *Config) Validate() error {
	t := c.Scoring.Thresholds
	if !(t.Critical > t.High && t.High > t.Medium && t.Medium > t.Low) {
		return fmt.Errorf("invalid thresholds: critical=%.2f high=%.2f medium=%.2f low=%.2f",
			t.Critical, t.High, t.Medium, t.Low)
	}
	if t.Critical >= 1.0 || t.Low <= 0.0 {
		return fmt.Errorf("thresholds must lie strictly within (0,1)")
	}

	if sum := c.Scoring.Weights.Sum(); math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("category weights sum to %.4f, want 1.0", sum)
	}

	for _, pb := range []struct {
		level string
		cfg   PlaybookConfig
	}{
		{"critical", c.Playbooks.Critical},
		{"high", c.Playbooks.High},
		{"medium", c.Playbooks.Medium},
	} {
		if pb.cfg.ResponseTime == "" {
			return fmt.Errorf("playbook %s: response_time is required", pb.level)
		}
		if pb.cfg.EscalationLevel == "" {
			return fmt.Errorf("playbook %s: escalation_level is required", pb.level)
		}
		if len(pb.cfg.Strategies) == 0 {
			return fmt.Errorf("playbook %s: at least one strategy is required", pb.level)
		}
	}

	if c.Scoring.BatchSize <= 0 {
		return fmt.Errorf("scoring batch_size must be positive")
	}
	return nil
}
