// internal/workers/analytics/generate-churn-analytics/config.go
package generatechurnanalytics

import "time"

type Config struct {
	Timeout           time.Duration
	DefaultPeriodDays int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:           60 * time.Second,
		DefaultPeriodDays: 30,
	}
}
