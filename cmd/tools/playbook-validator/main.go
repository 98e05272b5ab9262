// cmd/tools/playbook-validator/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"retention-workers/internal/common/config"
)

// playbook-validator loads the effective configuration (files, overlays,
// env overrides, defaults) and checks the pieces the engine refuses to
// start with: risk thresholds, category weights, and the per-level
// playbooks. Run it in CI before shipping a config change.
func main() {
	configDir := flag.String("config", "", "Config directory to prepend to the search path")
	verbose := flag.Bool("v", false, "Print the resolved playbooks and scoring parameters")
	flag.Parse()

	if *configDir != "" {
		if err := os.Chdir(*configDir); err != nil {
			fmt.Fprintf(os.Stderr, "cannot enter config dir %s: %v\n", *configDir, err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}

	problems := inspect(cfg)
	if *verbose {
		printResolved(cfg)
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "WARN: %s\n", p)
		}
		os.Exit(1)
	}

	fmt.Println("Configuration validation passed.")
}

// inspect flags playbook issues that Validate() tolerates but an
// operator probably didn't intend.
func inspect(cfg *config.Config) []string {
	var problems []string

	playbooks := []struct {
		level string
		pb    config.PlaybookConfig
	}{
		{"critical", cfg.Playbooks.Critical},
		{"high", cfg.Playbooks.High},
		{"medium", cfg.Playbooks.Medium},
	}

	for _, entry := range playbooks {
		if entry.pb.Budget <= 0 {
			problems = append(problems, fmt.Sprintf("playbook %s: budget is %.2f, plans will get no allocated budget", entry.level, entry.pb.Budget))
		}
		if entry.pb.ResourceTier == "" {
			problems = append(problems, fmt.Sprintf("playbook %s: resource_tier is empty", entry.level))
		}
		seen := map[string]bool{}
		for _, strategy := range entry.pb.Strategies {
			if seen[strategy] {
				problems = append(problems, fmt.Sprintf("playbook %s: duplicate strategy %q", entry.level, strategy))
			}
			seen[strategy] = true
		}
	}

	// Budgets should track severity.
	if cfg.Playbooks.Critical.Budget < cfg.Playbooks.High.Budget {
		problems = append(problems, "critical playbook budget is below the high playbook budget")
	}
	if cfg.Playbooks.High.Budget < cfg.Playbooks.Medium.Budget {
		problems = append(problems, "high playbook budget is below the medium playbook budget")
	}

	if cfg.Scoring.CacheTTL > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("cache_ttl of %s will serve day-old predictions", cfg.Scoring.CacheTTL))
	}

	for taskType, wcfg := range cfg.Workers {
		if wcfg.Enabled && wcfg.Timeout < 1000 {
			problems = append(problems, fmt.Sprintf("worker %s: timeout of %dms is below 1s", taskType, wcfg.Timeout))
		}
	}

	return problems
}

func printResolved(cfg *config.Config) {
	t := cfg.Scoring.Thresholds
	w := cfg.Scoring.Weights

	fmt.Printf("Thresholds: critical>=%.2f high>=%.2f medium>=%.2f low>=%.2f\n",
		t.Critical, t.High, t.Medium, t.Low)
	fmt.Printf("Weights (sum %.4f): usage=%.2f engagement=%.2f payment=%.2f support=%.2f competitive=%.2f organizational=%.2f\n",
		w.Sum(), w.Usage, w.Engagement, w.Payment, w.Support, w.Competitive, w.Organizational)
	fmt.Printf("Scoring: batch_size=%d min_categories=%d cache_ttl=%s model_version=%s\n",
		cfg.Scoring.BatchSize, cfg.Scoring.MinCategories, cfg.Scoring.CacheTTL, cfg.Scoring.ModelVersion)

	for _, entry := range []struct {
		level string
		pb    config.PlaybookConfig
	}{
		{"critical", cfg.Playbooks.Critical},
		{"high", cfg.Playbooks.High},
		{"medium", cfg.Playbooks.Medium},
	} {
		fmt.Printf("Playbook %-8s sla=%-10q escalation=%-12s tier=%-10s budget=%.0f strategies=%d\n",
			entry.level, entry.pb.ResponseTime, entry.pb.EscalationLevel,
			entry.pb.ResourceTier, entry.pb.Budget, len(entry.pb.Strategies))
	}

	taskTypes := make([]string, 0, len(cfg.Workers))
	for taskType := range cfg.Workers {
		taskTypes = append(taskTypes, taskType)
	}
	sort.Strings(taskTypes)
	for _, taskType := range taskTypes {
		wcfg := cfg.Workers[taskType]
		fmt.Printf("Worker %-26s enabled=%-5t maxJobs=%d timeout=%dms\n",
			taskType, wcfg.Enabled, wcfg.MaxJobsActive, wcfg.Timeout)
	}
}
