// internal/workers/retention/create-retention-plan/models.go
package createretentionplan

import "retention-workers/internal/models"

type Input struct {
	PredictionID string `json:"predictionId"`
	// Prediction may be passed inline by the upstream predict task;
	// when set, PredictionID is not consulted.
	Prediction *models.ChurnPrediction `json:"prediction,omitempty"`
}

type Output struct {
	Plan       *models.RetentionPlan `json:"plan"`
	PlanID     string                `json:"planId"`
	Tactics    int                   `json:"tactics"`
	Compressed bool                  `json:"compressed"`
}
