// internal/engine/execution/orchestrator.go
package execution

import (
	"context"
	"fmt"
	"time"

	"retention-workers/internal/common/logger"
	"retention-workers/internal/common/metrics"
	"retention-workers/internal/models"
)

// TacticHandler dispatches one tactic type to its owning subsystem. The
// returned detail describes the dispatch, not the eventual human
// outcome: tactics requiring human action complete asynchronously
// through a later status update.
type TacticHandler interface {
	Type() models.TacticType
	Dispatch(ctx context.Context, plan *models.RetentionPlan, tactic *models.RetentionTactic) (string, error)
}

// Escalator notifies the plan owner and the playbook's escalation level
// when a high-priority tactic fails.
type Escalator interface {
	Escalate(ctx context.Context, event models.EscalationEvent) error
}

// OutcomeRecorder persists tactic outcomes for the prevention
// effectiveness feedback loop. Persistence failures are logged, never
// fatal to execution.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, plan *models.RetentionPlan, outcome models.TacticOutcome) error
}

// Orchestrator runs a plan's tactics sequentially in priority order.
// Per-tactic failures are isolated: one handler error never aborts the
// remaining tactics. Execution across different plans is independent
// and safe to parallelize; the orchestrator holds no per-plan state.
type Orchestrator struct {
	handlers        map[models.TacticType]TacticHandler
	escalator       Escalator
	recorder        OutcomeRecorder
	escalationLevel func(models.RiskLevel) string
	logger          logger.Logger
}

func NewOrchestrator(
	handlers []TacticHandler,
	escalator Escalator,
	recorder OutcomeRecorder,
	escalationLevel func(models.RiskLevel) string,
	log logger.Logger,
) *Orchestrator {
	byType := make(map[models.TacticType]TacticHandler, len(handlers))
	for _, h := range handlers {
		byType[h.Type()] = h
	}
	return &Orchestrator{
		handlers:        byType,
		escalator:       escalator,
		recorder:        recorder,
		escalationLevel: escalationLevel,
		logger:          log,
	}
}

// Execute runs every pending tactic in the plan and returns the full
// result, including the escalation log. Blocked tactics are skipped and
// excluded from escalation consideration.
func (o *Orchestrator) Execute(ctx context.Context, plan *models.RetentionPlan) (*models.ExecutionResult, error) {
	result := &models.ExecutionResult{
		PlanID:    plan.ID,
		StartedAt: time.Now(),
	}

	metrics.PlansActive.Inc()
	defer metrics.PlansActive.Dec()

	for i := range plan.Tactics {
		tactic := &plan.Tactics[i]
		if tactic.Status == models.TacticBlocked {
			o.logger.Info("skipping blocked tactic", map[string]interface{}{
				"planId":   plan.ID,
				"tacticId": tactic.ID,
			})
			continue
		}
		result.TacticsTotal++

		outcome := o.runTactic(ctx, plan, tactic)
		result.Outcomes = append(result.Outcomes, outcome)

		if outcome.Status == models.TacticFailed {
			result.TacticsFailed++
			// Only high-priority failures escalate; the rest
			// are logged and execution continues.
			if tactic.Priority == models.PriorityHigh {
				event := o.escalate(ctx, plan, tactic, outcome.Detail)
				result.Escalations = append(result.Escalations, event)
			}
			continue
		}
		result.TacticsSucceed++
	}

	result.FinishedAt = time.Now()
	result.Status = finalStatus(result)

	o.logger.Info("plan execution finished", map[string]interface{}{
		"planId":      plan.ID,
		"status":      result.Status,
		"succeeded":   result.TacticsSucceed,
		"failed":      result.TacticsFailed,
		"escalations": len(result.Escalations),
	})

	return result, nil
}

// runTactic dispatches one tactic and converts the handler result into
// an outcome. Handler panics and errors stay inside this frame.
func (o *Orchestrator) runTactic(ctx context.Context, plan *models.RetentionPlan, tactic *models.RetentionTactic) models.TacticOutcome {
	tactic.Status = models.TacticInProgress
	start := time.Now()

	outcome := models.TacticOutcome{
		TacticID:   tactic.ID,
		TacticName: tactic.Name,
		Type:       tactic.Type,
	}

	handler, ok := o.handlers[tactic.Type]
	if !ok {
		tactic.Status = models.TacticFailed
		outcome.Status = models.TacticFailed
		outcome.Detail = fmt.Sprintf("no handler registered for tactic type %q", tactic.Type)
	} else {
		detail, err := o.safeDispatch(ctx, handler, plan, tactic)
		if err != nil {
			tactic.Status = models.TacticFailed
			outcome.Status = models.TacticFailed
			outcome.Detail = err.Error()
			o.logger.Error("tactic dispatch failed", map[string]interface{}{
				"planId":   plan.ID,
				"tacticId": tactic.ID,
				"type":     tactic.Type,
				"error":    err.Error(),
			})
		} else {
			tactic.Status = models.TacticCompleted
			outcome.Status = models.TacticCompleted
			outcome.Detail = detail
			outcome.Dispatched = true
		}
	}

	outcome.Duration = time.Since(start).Milliseconds()
	metrics.TacticsExecuted.WithLabelValues(string(tactic.Type), string(outcome.Status)).Inc()

	if o.recorder != nil {
		if err := o.recorder.RecordOutcome(ctx, plan, outcome); err != nil {
			o.logger.Warn("failed to record tactic outcome", map[string]interface{}{
				"planId":   plan.ID,
				"tacticId": tactic.ID,
				"error":    err.Error(),
			})
		}
	}

	return outcome
}

// safeDispatch isolates handler panics so a misbehaving handler cannot
// take the rest of the plan down with it.
func (o *Orchestrator) safeDispatch(ctx context.Context, handler TacticHandler, plan *models.RetentionPlan, tactic *models.RetentionTactic) (detail string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tactic handler panicked: %v", r)
		}
	}()
	return handler.Dispatch(ctx, plan, tactic)
}

// escalate notifies the owner and the playbook's escalation level. The
// event is recorded in the result even if the notification itself
// fails; an unreachable notifier must not hide that escalation was due.
func (o *Orchestrator) escalate(ctx context.Context, plan *models.RetentionPlan, tactic *models.RetentionTactic, reason string) models.EscalationEvent {
	level := "management"
	if o.escalationLevel != nil {
		level = o.escalationLevel(plan.RiskLevel)
	}

	event := models.EscalationEvent{
		PlanID:          plan.ID,
		TacticID:        tactic.ID,
		EscalationLevel: level,
		NotifiedOwner:   plan.AssignedTo,
		Reason:          reason,
		Timestamp:       time.Now(),
	}

	metrics.EscalationsTriggered.WithLabelValues(level).Inc()

	if o.escalator != nil {
		if err := o.escalator.Escalate(ctx, event); err != nil {
			o.logger.Error("escalation notification failed", map[string]interface{}{
				"planId":   plan.ID,
				"tacticId": tactic.ID,
				"level":    level,
				"error":    err.Error(),
			})
		}
	}

	return event
}

func finalStatus(result *models.ExecutionResult) models.PlanStatus {
	if result.TacticsFailed > 0 && result.TacticsSucceed == 0 {
		return models.PlanFailed
	}
	return models.PlanCompleted
}
