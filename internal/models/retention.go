// internal/models/retention.go
package models

import "time"

// TacticType routes a tactic to its type-specific handler.
type TacticType string

const (
	TacticCommunication TacticType = "communication"
	TacticProduct       TacticType = "product"
	TacticPricing       TacticType = "pricing"
	TacticService       TacticType = "service"
	TacticTechnical     TacticType = "technical"
)

// TacticPriority orders tactics within a plan.
type TacticPriority string

const (
	PriorityHigh   TacticPriority = "high"
	PriorityMedium TacticPriority = "medium"
	PriorityLow    TacticPriority = "low"
)

// PriorityWeight is the ordering weight used when ranking tactics by
// impact x priority.
func (p TacticPriority) PriorityWeight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// TacticStatus is the lifecycle of a single tactic.
type TacticStatus string

const (
	TacticPending    TacticStatus = "pending"
	TacticInProgress TacticStatus = "in_progress"
	TacticCompleted  TacticStatus = "completed"
	TacticFailed     TacticStatus = "failed"
	TacticBlocked    TacticStatus = "blocked"
)

// PlanStatus is the lifecycle of a retention plan.
type PlanStatus string

const (
	PlanPlanned   PlanStatus = "planned"
	PlanActive    PlanStatus = "active"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
)

// RetentionTactic is one concrete, independently executable action.
// A tactic is owned by exactly one plan.
type RetentionTactic struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Type            TacticType     `json:"type"`
	Description     string         `json:"description"`
	Priority        TacticPriority `json:"priority"`
	Effort          int            `json:"effort"` // 1-10
	Impact          int            `json:"impact"` // 1-10
	Timeline        string         `json:"timeline"`
	Prerequisites   []string       `json:"prerequisites,omitempty"`
	Deliverables    []string       `json:"deliverables,omitempty"`
	SuccessCriteria []string       `json:"successCriteria,omitempty"`
	Status          TacticStatus   `json:"status"`
}

// TimelinePhase is one phase of the retention timeline.
type TimelinePhase struct {
	Name         string   `json:"name"`
	DurationDays int      `json:"durationDays"`
	TacticIDs    []string `json:"tacticIds,omitempty"`
}

// Checkpoint is a scheduled review point within the timeline.
type Checkpoint struct {
	Name    string `json:"name"`
	DayMark int    `json:"dayMark"`
}

// RetentionTimeline lays the plan's phases against the churn horizon.
// Compressed is set when phase durations had to be squeezed to fit
// inside the estimated days-to-churn.
type RetentionTimeline struct {
	Phases       []TimelinePhase `json:"phases"`
	TotalDays    int             `json:"totalDays"`
	CriticalPath []string        `json:"criticalPath,omitempty"`
	Checkpoints  []Checkpoint    `json:"checkpoints,omitempty"`
	Compressed   bool            `json:"compressed"`
}

// AllocatedResources records what the playbook tier grants the plan.
type AllocatedResources struct {
	Personnel []string `json:"personnel,omitempty"`
	Budget    float64  `json:"budget"`
	Tools     []string `json:"tools,omitempty"`
}

// SuccessMetric is a measurable target for the plan.
type SuccessMetric struct {
	Name   string  `json:"name"`
	Target float64 `json:"target"`
	Unit   string  `json:"unit,omitempty"`
}

// Milestone is a dated deliverable within the plan.
type Milestone struct {
	Name    string `json:"name"`
	DayMark int    `json:"dayMark"`
}

// ContingencyPlan is the fallback if a strategy stalls.
type ContingencyPlan struct {
	Trigger string `json:"trigger"`
	Action  string `json:"action"`
}

// PlanTransition is one immutable status-history row, preserved per
// transition for auditing.
type PlanTransition struct {
	PlanID    string     `json:"planId"`
	From      PlanStatus `json:"from"`
	To        PlanStatus `json:"to"`
	Reason    string     `json:"reason,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// RetentionPlan is the structured response to an actionable prediction.
type RetentionPlan struct {
	ID                  string             `json:"id"`
	PredictionID        string             `json:"predictionId"`
	ClientID            string             `json:"clientId"`
	OrganizationID      string             `json:"organizationId"`
	RiskLevel           RiskLevel          `json:"riskLevel"`
	PrimaryStrategy     string             `json:"primaryStrategy"`
	SecondaryStrategies []string           `json:"secondaryStrategies,omitempty"`
	CustomApproach      string             `json:"customApproach,omitempty"`
	Tactics             []RetentionTactic  `json:"tactics"`
	Timeline            RetentionTimeline  `json:"timeline"`
	Resources           AllocatedResources `json:"resources"`
	SuccessMetrics      []SuccessMetric    `json:"successMetrics,omitempty"`
	Milestones          []Milestone        `json:"milestones,omitempty"`
	Contingencies       []ContingencyPlan  `json:"contingencies,omitempty"`
	EscalationTriggers  []string           `json:"escalationTriggers,omitempty"`
	Status              PlanStatus         `json:"status"`
	Effectiveness       float64            `json:"effectiveness"`
	AssignedTo          string             `json:"assignedTo"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// Playbook is the predefined response template for one risk level:
// an SLA, an escalation level, a resource tier, and an ordered
// strategy list.
type Playbook struct {
	RiskLevel       RiskLevel `json:"riskLevel"`
	ResponseTime    string    `json:"responseTime"`
	EscalationLevel string    `json:"escalationLevel"`
	ResourceTier    string    `json:"resourceTier"`
	Strategies      []string  `json:"strategies"`
}

// TacticOutcome is the recorded result of dispatching one tactic.
type TacticOutcome struct {
	TacticID   string       `json:"tacticId"`
	TacticName string       `json:"tacticName"`
	Type       TacticType   `json:"type"`
	Status     TacticStatus `json:"status"`
	Detail     string       `json:"detail,omitempty"`
	Dispatched bool         `json:"dispatched"`
	Duration   int64        `json:"durationMs"`
}

// EscalationEvent records one escalation invoked during execution.
type EscalationEvent struct {
	PlanID          string    `json:"planId"`
	TacticID        string    `json:"tacticId"`
	EscalationLevel string    `json:"escalationLevel"`
	NotifiedOwner   string    `json:"notifiedOwner"`
	Reason          string    `json:"reason"`
	Timestamp       time.Time `json:"timestamp"`
}

// ExecutionResult summarizes one plan execution pass.
type ExecutionResult struct {
	PlanID         string            `json:"planId"`
	Status         PlanStatus        `json:"status"`
	Outcomes       []TacticOutcome   `json:"outcomes"`
	Escalations    []EscalationEvent `json:"escalations,omitempty"`
	TacticsTotal   int               `json:"tacticsTotal"`
	TacticsSucceed int               `json:"tacticsSucceeded"`
	TacticsFailed  int               `json:"tacticsFailed"`
	StartedAt      time.Time         `json:"startedAt"`
	FinishedAt     time.Time         `json:"finishedAt"`
}
