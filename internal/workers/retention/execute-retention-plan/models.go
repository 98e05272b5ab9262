// internal/workers/retention/execute-retention-plan/models.go
package executeretentionplan

import "retention-workers/internal/models"

type Input struct {
	PlanID string `json:"planId"`
}

type Output struct {
	Result    *models.ExecutionResult `json:"result"`
	Status    string                  `json:"status"`
	Escalated bool                    `json:"escalated"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
}
