// internal/workers/prediction/predict-churn/models.go
package predictchurn

import "retention-workers/internal/models"

type Input struct {
	ClientID string `json:"clientId"`
}

type Output struct {
	Prediction *models.ChurnPrediction `json:"prediction"`
	RiskLevel  string                  `json:"riskLevel"`
	Stage      string                  `json:"lifecycleStage"`
	Actionable bool                    `json:"actionable"`
}
