// internal/workers/prediction/batch-predict-churn/config.go
package batchpredictchurn

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// Batch runs score a whole organization; give them room.
		Timeout: 5 * time.Minute,
	}
}
