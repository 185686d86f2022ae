package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coachbill/pkg/reconciler"
	"github.com/dmitrymomot/coachbill/pkg/tenant"
)

type directoryAdapter struct {
	dir tenant.Directory
}

// DirectoryAdapter exposes a tenant directory to the reconciler,
// translating the not-found sentinel between the two packages.
func DirectoryAdapter(dir tenant.Directory) reconciler.TenantDirectory {
	if dir == nil {
		panic("billing: tenant directory is required")
	}
	return directoryAdapter{dir: dir}
}

func (a directoryAdapter) FindByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	id, err := a.dir.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return uuid.Nil, reconciler.ErrTenantNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}
