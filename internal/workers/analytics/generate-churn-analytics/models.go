// internal/workers/analytics/generate-churn-analytics/models.go
package generatechurnanalytics

import "retention-workers/internal/models"

type Input struct {
	OrganizationID string `json:"organizationId"`
	// RFC3339; when absent the period defaults to the configured
	// trailing window ending now.
	PeriodStart string `json:"periodStart,omitempty"`
	PeriodEnd   string `json:"periodEnd,omitempty"`
}

type Output struct {
	Analytics     *models.ChurnAnalytics `json:"analytics"`
	ChurnRate     float64                `json:"churnRate"`
	RetentionRate float64                `json:"retentionRate"`
	Insufficient  bool                   `json:"insufficientData"`
}
