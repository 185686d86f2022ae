package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgDirectory struct {
	db *pgxpool.Pool
}

// NewPgDirectory returns a PostgreSQL-backed tenant directory.
func NewPgDirectory(db *pgxpool.Pool) Directory {
	return &pgDirectory{db: db}
}

func (d *pgDirectory) FindByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	var id uuid.UUID
	err := d.db.QueryRow(ctx,
		`SELECT id FROM tenants WHERE email = $1`,
		NormalizeEmail(email),
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (d *pgDirectory) Upsert(ctx context.Context, tenantID uuid.UUID, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrInvalidEmail
	}

	_, err := d.db.Exec(ctx,
		`INSERT INTO tenants (id, email, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`,
		tenantID, email, time.Now().UTC())
	return err
}
