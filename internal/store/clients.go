// internal/store/clients.go
package store

import (
	"context"
	"database/sql"
	stderrors "errors"

	"retention-workers/internal/common/errors"
	"retention-workers/internal/models"
)

// ClientStore reads client profiles and the billing/support/firm-level
// summaries kept alongside them. It backs the signal aggregator's
// ProfileStore, PaymentStore, SupportStore, and OrganizationalSource
// interfaces.
type ClientStore struct {
	db *sql.DB
}

func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

func (s *ClientStore) GetProfile(ctx context.Context, clientID string) (*models.ClientProfile, error) {
	var p models.ClientProfile
	var specialization, assignedCSM sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, firm_size, growth_stage, specialization,
		       monthly_revenue, profit_margin, contract_start, contract_end,
		       acquired_at, assigned_csm
		FROM clients WHERE id = $1`, clientID,
	).Scan(
		&p.ClientID, &p.OrganizationID, &p.Name, &p.FirmSize, &p.GrowthStage,
		&specialization, &p.MonthlyRevenue, &p.ProfitMargin, &p.ContractStart,
		&p.ContractEnd, &p.AcquiredAt, &assignedCSM,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewClientNotFoundError(clientID)
		}
		return nil, errors.NewQueryExecutionFailedError("read client profile", err)
	}

	p.Specialization = specialization.String
	p.AssignedCSM = assignedCSM.String
	return &p, nil
}

func (s *ClientStore) GetPayments(ctx context.Context, clientID string) (*models.PaymentHistory, error) {
	var h models.PaymentHistory
	var trend string

	err := s.db.QueryRowContext(ctx, `
		SELECT on_time_rate, outstanding_balance, last_payment, trend, downgraded
		FROM payment_summaries WHERE client_id = $1`, clientID,
	).Scan(&h.OnTimeRate, &h.OutstandingBalance, &h.LastPayment, &trend, &h.DownGraded)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewDataUnavailableError("payments", err)
		}
		return nil, errors.NewQueryExecutionFailedError("read payment summary", err)
	}

	h.Trend = models.Trend(trend)
	return &h, nil
}

func (s *ClientStore) GetSupport(ctx context.Context, clientID string) (*models.SupportHistory, error) {
	var h models.SupportHistory
	var trend string

	err := s.db.QueryRowContext(ctx, `
		SELECT satisfaction_score, open_tickets, escalated_tickets, tickets_90d, trend
		FROM support_summaries WHERE client_id = $1`, clientID,
	).Scan(&h.SatisfactionScore, &h.OpenTickets, &h.EscalatedTickets, &h.TicketsLast90Days, &trend)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewDataUnavailableError("support", err)
		}
		return nil, errors.NewQueryExecutionFailedError("read support summary", err)
	}

	h.Trend = models.Trend(trend)
	return &h, nil
}

func (s *ClientStore) GetOrganizational(ctx context.Context, clientID string) (*models.OrganizationalSignals, error) {
	var o models.OrganizationalSignals
	var headcount string

	err := s.db.QueryRowContext(ctx, `
		SELECT leadership_change, downsizing, headcount_trend
		FROM firm_signals WHERE client_id = $1`, clientID,
	).Scan(&o.LeadershipChange, &o.Downsizing, &headcount)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewDataUnavailableError("organizational", err)
		}
		return nil, errors.NewQueryExecutionFailedError("read firm signals", err)
	}

	o.HeadcountTrend = models.Trend(headcount)
	return &o, nil
}
