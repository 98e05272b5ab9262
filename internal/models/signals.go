// internal/models/signals.go
package models

import "time"

// ClientProfile is the contract-level view of a client fetched from the
// profile store.
type ClientProfile struct {
	ClientID       string    `json:"clientId"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	FirmSize       int       `json:"firmSize"`
	GrowthStage    string    `json:"growthStage"`
	Specialization string    `json:"specialization,omitempty"`
	MonthlyRevenue float64   `json:"monthlyRevenue"` // MRR attributable to this client
	ProfitMargin   float64   `json:"profitMargin"`   // [0,1]
	ContractStart  time.Time `json:"contractStart"`
	ContractEnd    time.Time `json:"contractEnd"`
	AcquiredAt     time.Time `json:"acquiredAt"`
	AssignedCSM    string    `json:"assignedCsm,omitempty"`
}

// UsageData is the pre-aggregated telemetry summary for one client.
type UsageData struct {
	LoginsPerWeek        float64            `json:"loginsPerWeek"`
	AvgSessionMinutes    float64            `json:"avgSessionMinutes"`
	FeatureUsage         map[string]float64 `json:"featureUsage,omitempty"`
	DocumentsProcessed   int                `json:"documentsProcessed"`
	PortalSessions       int                `json:"portalSessions"`
	APICalls             int                `json:"apiCalls"`
	HistoricalLogins     float64            `json:"historicalLogins"`
	HistoricalDocuments  float64            `json:"historicalDocuments"`
	HistoricalPortal     float64            `json:"historicalPortal"`
	HistoricalAPICalls   float64            `json:"historicalApiCalls"`
	ObservedMonth        time.Month         `json:"observedMonth"`
	LastActivity         time.Time          `json:"lastActivity"`
	ActiveFeatureCount   int                `json:"activeFeatureCount"`
	OfferedFeatureCount  int                `json:"offeredFeatureCount"`
	SessionTrendPercent  float64            `json:"sessionTrendPercent"`
}

// PaymentHistory summarizes the client's billing behavior.
type PaymentHistory struct {
	OnTimeRate         float64   `json:"onTimeRate"` // [0,1]
	OutstandingBalance float64   `json:"outstandingBalance"`
	LastPayment        time.Time `json:"lastPayment"`
	Trend              Trend     `json:"trend"`
	DownGraded         bool      `json:"downgraded"`
}

// SupportHistory summarizes the client's support relationship.
type SupportHistory struct {
	SatisfactionScore float64 `json:"satisfactionScore"` // [0,1]
	OpenTickets       int     `json:"openTickets"`
	EscalatedTickets  int     `json:"escalatedTickets"`
	TicketsLast90Days int     `json:"ticketsLast90Days"`
	Trend             Trend   `json:"trend"`
}

// CompetitiveIntel is the external feed's view of competitive pressure
// on the client.
type CompetitiveIntel struct {
	ThreatLevel float64  `json:"threatLevel"` // [0,1]
	Competitors []string `json:"competitors,omitempty"`
	Evidence    []string `json:"evidence,omitempty"`
}

// OrganizationalSignals capture churn-relevant changes at the client's
// own firm (leadership turnover, downsizing).
type OrganizationalSignals struct {
	LeadershipChange bool  `json:"leadershipChange"`
	Downsizing       bool  `json:"downsizing"`
	HeadcountTrend   Trend `json:"headcountTrend"`
}

// SignalBundle is the normalized input to a prediction run. Sources
// that could not be reached are listed in DegradedSources and their
// fields hold neutral defaults so scoring degrades instead of failing.
type SignalBundle struct {
	Profile         ClientProfile         `json:"profile"`
	Usage           UsageData             `json:"usage"`
	Payments        PaymentHistory        `json:"payments"`
	Support         SupportHistory        `json:"support"`
	Competitive     CompetitiveIntel      `json:"competitive"`
	Organizational  OrganizationalSignals `json:"organizational"`
	DegradedSources []string              `json:"degradedSources,omitempty"`
	FetchedAt       time.Time             `json:"fetchedAt"`
}

// Degraded reports whether the named source failed during aggregation.
func (b *SignalBundle) Degraded(source string) bool {
	for _, s := range b.DegradedSources {
		if s == source {
			return true
		}
	}
	return false
}
