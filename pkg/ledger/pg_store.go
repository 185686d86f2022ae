package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgChargeStore struct {
	db *pgxpool.Pool
}

// NewPgChargeStore returns a PostgreSQL-backed charge ledger.
// The unique index on (provider, external_event_id) enforces the
// idempotency invariant at the storage layer, not just in code.
func NewPgChargeStore(db *pgxpool.Pool) ChargeStore {
	return &pgChargeStore{db: db}
}

func (s *pgChargeStore) Record(ctx context.Context, charge *Charge) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO charges (id, tenant_id, provider, external_event_id, action, amount, currency, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (provider, external_event_id) DO NOTHING`,
		charge.ID, charge.TenantID, charge.Provider, charge.ExternalEventID,
		charge.Action, charge.Amount.Amount, charge.Amount.Currency,
		charge.Status, charge.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *pgChargeStore) Settle(ctx context.Context, provider, externalEventID string, status ChargeStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE charges SET status = $3 WHERE provider = $1 AND external_event_id = $2`,
		provider, externalEventID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrChargeNotFound
	}
	return nil
}

func (s *pgChargeStore) GetByEventID(ctx context.Context, provider, externalEventID string) (*Charge, error) {
	var c Charge
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, provider, external_event_id, action, amount, currency, status, created_at
		 FROM charges WHERE provider = $1 AND external_event_id = $2`,
		provider, externalEventID,
	).Scan(&c.ID, &c.TenantID, &c.Provider, &c.ExternalEventID, &c.Action,
		&c.Amount.Amount, &c.Amount.Currency, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChargeNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *pgChargeStore) SummarizePeriod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (PeriodTotals, error) {
	var totals PeriodTotals
	err := s.db.QueryRow(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN status = $4 THEN -amount ELSE amount END), 0),
		   COALESCE(MAX(currency), ''),
		   COUNT(*)
		 FROM charges
		 WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3`,
		tenantID, start, end, ChargeStatusRefunded,
	).Scan(&totals.TotalAmount, &totals.Currency, &totals.ChargeCount)
	if err != nil {
		return PeriodTotals{}, err
	}
	return totals, nil
}

type pgPendingStore struct {
	db *pgxpool.Pool
}

// NewPgPendingStore returns a PostgreSQL-backed pending activation store.
func NewPgPendingStore(db *pgxpool.Pool) PendingStore {
	return &pgPendingStore{db: db}
}

func (s *pgPendingStore) Put(ctx context.Context, pending *PendingActivation) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO pending_activations (email, provider, external_order_id, external_sub_id, plan_id, amount, currency, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (email) DO UPDATE SET
		   provider = EXCLUDED.provider,
		   external_order_id = EXCLUDED.external_order_id,
		   external_sub_id = EXCLUDED.external_sub_id,
		   plan_id = EXCLUDED.plan_id,
		   amount = EXCLUDED.amount,
		   currency = EXCLUDED.currency,
		   created_at = EXCLUDED.created_at`,
		strings.ToLower(pending.Email), pending.Provider, pending.ExternalOrderID,
		pending.ExternalSubID, pending.PlanID,
		pending.Amount.Amount, pending.Amount.Currency, pending.CreatedAt)
	return err
}

func (s *pgPendingStore) GetByEmail(ctx context.Context, email string) (*PendingActivation, error) {
	var p PendingActivation
	err := s.db.QueryRow(ctx,
		`SELECT email, provider, external_order_id, external_sub_id, plan_id, amount, currency, created_at
		 FROM pending_activations WHERE email = $1`,
		strings.ToLower(email),
	).Scan(&p.Email, &p.Provider, &p.ExternalOrderID, &p.ExternalSubID,
		&p.PlanID, &p.Amount.Amount, &p.Amount.Currency, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPendingNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *pgPendingStore) Delete(ctx context.Context, email string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM pending_activations WHERE email = $1`, strings.ToLower(email))
	return err
}
