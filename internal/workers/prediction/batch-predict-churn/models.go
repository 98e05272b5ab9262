// internal/workers/prediction/batch-predict-churn/models.go
package batchpredictchurn

import "retention-workers/internal/models"

type Input struct {
	OrganizationID string `json:"organizationId"`
}

type Output struct {
	Predictions []*models.ChurnPrediction `json:"predictions"`
	Scored      int                       `json:"scored"`
	Actionable  int                       `json:"actionable"`
}
