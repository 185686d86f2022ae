package usage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPgStudentCounter returns a counter backed by a COUNT over the
// students table. A fresh count per call keeps billing honest when
// students are added and removed concurrently.
func NewPgStudentCounter(db *pgxpool.Pool) StudentCounterFunc {
	return func(ctx context.Context, tenantID uuid.UUID) (int64, error) {
		var count int64
		err := db.QueryRow(ctx,
			`SELECT COUNT(*) FROM students WHERE tenant_id = $1`,
			tenantID,
		).Scan(&count)
		if err != nil {
			return 0, err
		}
		return count, nil
	}
}
