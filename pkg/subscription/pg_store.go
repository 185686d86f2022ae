package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore implements Store on PostgreSQL. The status predicate in Save's
// WHERE clause is what makes concurrent webhook processing safe: two
// deliveries racing on the same tenant cannot both win the update.
type pgStore struct {
	db *pgxpool.Pool
}

// NewPgStore returns a PostgreSQL-backed subscription store.
func NewPgStore(db *pgxpool.Pool) Store {
	return &pgStore{db: db}
}

const subscriptionColumns = `tenant_id, plan_id, status, current_period_end, provider, provider_sub_id, provider_order_id, last_event_id, created_at, updated_at, cancelled_at`

func (s *pgStore) Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE tenant_id = $1`,
		tenantID)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *pgStore) Create(ctx context.Context, sub *Subscription) error {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (tenant_id) DO NOTHING`,
		sub.TenantID, sub.PlanID, sub.Status, nullableTime(sub.CurrentPeriodEnd),
		sub.Provider, sub.ProviderSubID, sub.ProviderOrderID, sub.LastEventID,
		sub.CreatedAt, sub.UpdatedAt, sub.CancelledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *pgStore) Save(ctx context.Context, sub *Subscription, expectedStatus Status) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE subscriptions
		 SET plan_id = $2, status = $3, current_period_end = $4, provider = $5,
		     provider_sub_id = $6, provider_order_id = $7, last_event_id = $8,
		     updated_at = $9, cancelled_at = $10
		 WHERE tenant_id = $1 AND status = $11`,
		sub.TenantID, sub.PlanID, sub.Status, nullableTime(sub.CurrentPeriodEnd),
		sub.Provider, sub.ProviderSubID, sub.ProviderOrderID, sub.LastEventID,
		sub.UpdatedAt, sub.CancelledAt, expectedStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a lost race from a missing row.
		if _, err := s.Get(ctx, sub.TenantID); err != nil {
			return err
		}
		return ErrStale
	}
	return nil
}

func (s *pgStore) ListActiveEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Subscription, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE status = $1 AND current_period_end IS NOT NULL AND current_period_end < $2
		 ORDER BY current_period_end
		 LIMIT $3`,
		StatusActive, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub       Subscription
		periodEnd *time.Time
	)
	if err := row.Scan(
		&sub.TenantID, &sub.PlanID, &sub.Status, &periodEnd,
		&sub.Provider, &sub.ProviderSubID, &sub.ProviderOrderID, &sub.LastEventID,
		&sub.CreatedAt, &sub.UpdatedAt, &sub.CancelledAt,
	); err != nil {
		return nil, err
	}
	if periodEnd != nil {
		sub.CurrentPeriodEnd = *periodEnd
	}
	return &sub, nil
}

// nullableTime maps the zero time to NULL so trial subscriptions, which
// have no paid period yet, don't store a bogus year-one timestamp.
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
