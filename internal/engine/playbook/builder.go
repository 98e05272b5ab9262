// internal/engine/playbook/builder.go
package playbook

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"retention-workers/internal/common/config"
	"retention-workers/internal/common/errors"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/engine/scoring"
	"retention-workers/internal/models"
)

// Builder turns an actionable prediction into a retention plan using
// the playbook configured for its risk level. Playbooks are immutable
// config loaded at startup.
type Builder struct {
	playbooks config.PlaybooksConfig
	logger    logger.Logger
}

func NewBuilder(playbooks config.PlaybooksConfig, log logger.Logger) *Builder {
	return &Builder{playbooks: playbooks, logger: log}
}

// PlaybookFor resolves the configured playbook for a risk level. Low
// and minimal risk carry no playbook: those clients are monitored, not
// planned for.
func (b *Builder) PlaybookFor(level models.RiskLevel) (*models.Playbook, error) {
	var cfg config.PlaybookConfig
	switch level {
	case models.RiskLevelCritical:
		cfg = b.playbooks.Critical
	case models.RiskLevelHigh:
		cfg = b.playbooks.High
	case models.RiskLevelMedium:
		cfg = b.playbooks.Medium
	default:
		return nil, errors.NewInvalidPlaybookError(string(level), "no playbook defined for this risk level")
	}

	return &models.Playbook{
		RiskLevel:       level,
		ResponseTime:    cfg.ResponseTime,
		EscalationLevel: cfg.EscalationLevel,
		ResourceTier:    cfg.ResourceTier,
		Strategies:      cfg.Strategies,
	}, nil
}

// Build creates the full plan: tactics from matched factor categories,
// ordered by impact x priority weight, a timeline fitted to the churn
// horizon, and playbook-tier resources. owner is the CSM the plan is
// assigned to.
func (b *Builder) Build(prediction *models.ChurnPrediction, owner string) (*models.RetentionPlan, error) {
	pb, err := b.PlaybookFor(prediction.RiskLevel)
	if err != nil {
		return nil, err
	}

	tactics := b.generateTactics(prediction)
	orderTactics(tactics)

	timeline := buildTimeline(prediction.RiskLevel, tactics, prediction.DaysToChurn)

	budget := b.budgetFor(prediction.RiskLevel)

	plan := &models.RetentionPlan{
		ID:              uuid.NewString(),
		PredictionID:    prediction.ID,
		ClientID:        prediction.ClientID,
		OrganizationID:  prediction.OrganizationID,
		RiskLevel:       prediction.RiskLevel,
		PrimaryStrategy: pb.Strategies[0],
		Tactics:         tactics,
		Timeline:        timeline,
		Resources: models.AllocatedResources{
			Personnel: personnelFor(pb.ResourceTier, owner),
			Budget:    budget,
			Tools:     []string{"crm", "health-dashboard"},
		},
		SuccessMetrics: []models.SuccessMetric{
			{Name: "churn_probability_reduction", Target: 0.25, Unit: "probability"},
			{Name: "engagement_score", Target: 0.6, Unit: "score"},
		},
		Milestones: []models.Milestone{
			{Name: "first_contact", DayMark: 1},
			{Name: "intervention_complete", DayMark: timeline.TotalDays / 2},
			{Name: "health_review", DayMark: timeline.TotalDays},
		},
		Contingencies: []models.ContingencyPlan{
			{Trigger: "no client response within SLA", Action: "escalate to " + pb.EscalationLevel},
			{Trigger: "risk level increases during execution", Action: "rebuild plan at new risk level"},
		},
		EscalationTriggers: []string{
			"high-priority tactic failure",
			"churn probability exceeds critical threshold",
		},
		Status:     models.PlanPlanned,
		AssignedTo: owner,
		CreatedAt:  time.Now(),
	}

	if len(pb.Strategies) > 1 {
		plan.SecondaryStrategies = pb.Strategies[1:]
	}

	b.logger.Info("retention plan built", map[string]interface{}{
		"planId":     plan.ID,
		"clientId":   plan.ClientID,
		"riskLevel":  plan.RiskLevel,
		"tactics":    len(plan.Tactics),
		"totalDays":  timeline.TotalDays,
		"compressed": timeline.Compressed,
	})

	return plan, nil
}

// tacticTemplate is the per-category response blueprint.
type tacticTemplate struct {
	name         string
	tacticType   models.TacticType
	description  string
	effort       int
	impact       int
	deliverables []string
	criteria     []string
}

var categoryTactics = map[models.FactorCategory]tacticTemplate{
	models.CategoryUsage: {
		name:         "feature_adoption_nudge",
		tacticType:   models.TacticProduct,
		description:  "Guided onboarding into the unused features driving the usage decline",
		effort:       3,
		impact:       6,
		deliverables: []string{"feature walkthrough session", "adoption report"},
		criteria:     []string{"active feature count increases", "weekly logins recover to baseline"},
	},
	models.CategoryEngagement: {
		name:         "proactive_account_review",
		tacticType:   models.TacticService,
		description:  "CSM-led account review to re-establish an engagement cadence",
		effort:       4,
		impact:       7,
		deliverables: []string{"account review meeting", "engagement plan"},
		criteria:     []string{"review meeting held", "portal activity resumes"},
	},
	models.CategoryPayment: {
		name:         "pricing_and_payment_review",
		tacticType:   models.TacticPricing,
		description:  "Review billing friction and plan fit, offer payment restructuring if warranted",
		effort:       5,
		impact:       8,
		deliverables: []string{"billing review", "revised payment terms proposal"},
		criteria:     []string{"outstanding balance cleared", "on-time rate recovers above 90%"},
	},
	models.CategorySupport: {
		name:         "service_recovery_review",
		tacticType:   models.TacticService,
		description:  "Dedicated resolution push on escalated tickets with a named owner",
		effort:       6,
		impact:       8,
		deliverables: []string{"escalation resolution report", "satisfaction follow-up"},
		criteria:     []string{"escalated tickets resolved", "satisfaction score above 0.7"},
	},
	models.CategoryCompetitive: {
		name:         "value_realization_workshop",
		tacticType:   models.TacticCommunication,
		description:  "Quantify delivered value against the competing offer the client is evaluating",
		effort:       5,
		impact:       7,
		deliverables: []string{"ROI summary", "competitive comparison"},
		criteria:     []string{"renewal intent confirmed"},
	},
	models.CategoryOrganizational: {
		name:         "executive_sponsor_outreach",
		tacticType:   models.TacticCommunication,
		description:  "Executive-level relationship rebuild with the client's new decision makers",
		effort:       4,
		impact:       9,
		deliverables: []string{"executive introduction", "partnership roadmap"},
		criteria:     []string{"sponsor relationship established"},
	},
}

// generateTactics emits one tactic per matched primary-factor category.
// Priority follows the factor's impact, so the tactic order reflects
// where the risk actually is.
func (b *Builder) generateTactics(prediction *models.ChurnPrediction) []models.RetentionTactic {
	seen := make(map[models.FactorCategory]bool)
	var tactics []models.RetentionTactic

	for _, factor := range prediction.PrimaryRiskFactors {
		if seen[factor.Category] {
			continue
		}
		seen[factor.Category] = true

		tmpl, ok := categoryTactics[factor.Category]
		if !ok {
			continue
		}

		tactics = append(tactics, models.RetentionTactic{
			ID:              uuid.NewString(),
			Name:            tmpl.name,
			Type:            tmpl.tacticType,
			Description:     tmpl.description,
			Priority:        priorityFor(factor.Impact),
			Effort:          tmpl.effort,
			Impact:          tmpl.impact,
			Timeline:        fmt.Sprintf("within %s", responseWindow(prediction.RiskLevel)),
			Prerequisites:   []string{"prediction reviewed by " + string(factor.Category) + " owner"},
			Deliverables:    tmpl.deliverables,
			SuccessCriteria: tmpl.criteria,
			Status:          models.TacticPending,
		})
	}

	return tactics
}

func priorityFor(impact float64) models.TacticPriority {
	switch {
	case impact > 0.7:
		return models.PriorityHigh
	case impact > 0.4:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// orderTactics sorts by impact x priority weight descending, the order
// the orchestrator will execute in.
func orderTactics(tactics []models.RetentionTactic) {
	sort.SliceStable(tactics, func(i, j int) bool {
		return tactics[i].Impact*tactics[i].Priority.PriorityWeight() >
			tactics[j].Impact*tactics[j].Priority.PriorityWeight()
	})
}

// Base phase durations in days, scaled down for higher risk levels and
// compressed further if they would overrun the churn horizon.
var basePhases = []models.TimelinePhase{
	{Name: "immediate_response", DurationDays: 3},
	{Name: "intervention", DurationDays: 21},
	{Name: "stabilization", DurationDays: 30},
	{Name: "monitoring", DurationDays: 30},
}

func buildTimeline(level models.RiskLevel, tactics []models.RetentionTactic, daysToChurn int) models.RetentionTimeline {
	phases := make([]models.TimelinePhase, len(basePhases))
	copy(phases, basePhases)

	// Critical plans run on a tighter base schedule before any
	// horizon compression.
	if level == models.RiskLevelCritical {
		for i := range phases {
			phases[i].DurationDays = (phases[i].DurationDays + 1) / 2
		}
	}

	for i := range tactics {
		phases[min(i, len(phases)-1)].TacticIDs = append(phases[min(i, len(phases)-1)].TacticIDs, tactics[i].ID)
	}

	total := 0
	for _, p := range phases {
		total += p.DurationDays
	}

	compressed := false
	if daysToChurn > 0 && daysToChurn < scoring.IndeterminateDaysToChurn && total > daysToChurn {
		// Squeeze phases proportionally rather than overrunning
		// the churn horizon.
		compressed = true
		if daysToChurn < len(phases) {
			// Fewer days than phases: keep one day per phase and
			// fold the tail phases' tactics into the last one kept.
			kept := phases[:daysToChurn]
			last := len(kept) - 1
			for _, p := range phases[daysToChurn:] {
				kept[last].TacticIDs = append(kept[last].TacticIDs, p.TacticIDs...)
			}
			for i := range kept {
				kept[i].DurationDays = 1
			}
			phases = kept
			total = daysToChurn
		} else {
			scale := float64(daysToChurn) / float64(total)
			total = 0
			for i := range phases {
				d := int(float64(phases[i].DurationDays) * scale)
				if d < 1 {
					d = 1
				}
				phases[i].DurationDays = d
				total += d
			}
			// The 1-day floor can push the total back over the
			// horizon; take the excess from the longest phases.
			for total > daysToChurn {
				longest := 0
				for i := range phases {
					if phases[i].DurationDays > phases[longest].DurationDays {
						longest = i
					}
				}
				if phases[longest].DurationDays <= 1 {
					break
				}
				phases[longest].DurationDays--
				total--
			}
		}
	}

	var critical []string
	for _, t := range tactics {
		if t.Priority == models.PriorityHigh {
			critical = append(critical, t.ID)
		}
	}

	return models.RetentionTimeline{
		Phases:       phases,
		TotalDays:    total,
		CriticalPath: critical,
		Checkpoints: []models.Checkpoint{
			{Name: "response_check", DayMark: phases[0].DurationDays},
			{Name: "midpoint_review", DayMark: total / 2},
			{Name: "final_review", DayMark: total},
		},
		Compressed: compressed,
	}
}

func (b *Builder) budgetFor(level models.RiskLevel) float64 {
	switch level {
	case models.RiskLevelCritical:
		return b.playbooks.Critical.Budget
	case models.RiskLevelHigh:
		return b.playbooks.High.Budget
	default:
		return b.playbooks.Medium.Budget
	}
}

func personnelFor(tier, owner string) []string {
	switch tier {
	case "dedicated":
		return []string{owner, "dedicated success manager", "account executive"}
	case "priority":
		return []string{owner, "success team lead"}
	default:
		return []string{owner}
	}
}

func responseWindow(level models.RiskLevel) string {
	switch level {
	case models.RiskLevelCritical:
		return "24 hours"
	case models.RiskLevelHigh:
		return "48 hours"
	default:
		return "1 week"
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
