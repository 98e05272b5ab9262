// internal/workers/retention/execute-retention-plan/config.go
package executeretentionplan

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// Sequential dispatch of every tactic in the plan.
		Timeout: 2 * time.Minute,
	}
}
