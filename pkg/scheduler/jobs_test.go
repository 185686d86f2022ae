package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coachbill/pkg/ledger"
	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/provider/hotmart"
	"github.com/dmitrymomot/coachbill/pkg/reconciler"
	"github.com/dmitrymomot/coachbill/pkg/scheduler"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
)

type staticChecker map[string]hotmart.SubscriberStatus

func (c staticChecker) SubscriberStatus(ctx context.Context, code string) (hotmart.SubscriberStatus, error) {
	status, ok := c[code]
	if !ok {
		return "", hotmart.ErrSubscriberNotFound
	}
	return status, nil
}

type emptyDirectory struct{}

func (emptyDirectory) FindByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	return uuid.Nil, reconciler.ErrTenantNotFound
}

func cureCatalog(t *testing.T) *plan.Catalog {
	t.Helper()
	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(map[string]plan.Plan{
		"starter": {ID: "starter", Name: "Starter", StudentLimit: 15,
			Price:             plan.Money{Amount: 7900, Currency: "BRL"},
			ExtraStudentPrice: plan.Money{Amount: 646, Currency: "BRL"}},
	}))
	require.NoError(t, err)
	return catalog
}

func seedOverdue(t *testing.T, store subscription.Store, subID string, endedAgo time.Duration) uuid.UUID {
	t.Helper()
	tenantID := uuid.New()
	sub := subscription.NewTrial(tenantID, "starter", time.Now().UTC().Add(-endedAgo-30*24*time.Hour))
	sub.Status = subscription.StatusActive
	sub.Provider = hotmart.Provider
	sub.ProviderSubID = subID
	sub.CurrentPeriodEnd = time.Now().UTC().Add(-endedAgo)
	require.NoError(t, store.Create(context.Background(), sub))
	return tenantID
}

func TestExpireOverdue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := subscription.NewMemStore()
	svc := subscription.NewService(store, cureCatalog(t), discardLogger())

	longOverdue := seedOverdue(t, store, "SUB-OLD", 45*24*time.Hour)
	recentlyOverdue := seedOverdue(t, store, "SUB-NEW", 2*24*time.Hour)

	job := scheduler.ExpireOverdue(store, svc, discardLogger())
	require.NoError(t, job(ctx))

	old, err := store.Get(ctx, longOverdue)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, old.Status)

	recent, err := store.Get(ctx, recentlyOverdue)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, recent.Status)
}

func TestCureOverdue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	newFixture := func(t *testing.T, checker scheduler.SubscriberChecker) (subscription.Store, ledger.ChargeStore, scheduler.JobFunc) {
		t.Helper()
		store := subscription.NewMemStore()
		charges := ledger.NewMemChargeStore()
		rec := reconciler.New(store, charges, ledger.NewMemPendingStore(), emptyDirectory{},
			reconciler.WithLogger(discardLogger()))
		job := scheduler.CureOverdue(store, checker, rec, cureCatalog(t), discardLogger())
		return store, charges, job
	}

	t.Run("upstream active renews the subscription", func(t *testing.T) {
		t.Parallel()
		store, charges, job := newFixture(t, staticChecker{"SUB-1": hotmart.SubscriberActive})
		tenantID := seedOverdue(t, store, "SUB-1", 3*24*time.Hour)
		before, err := store.Get(ctx, tenantID)
		require.NoError(t, err)

		require.NoError(t, job(ctx))

		sub, err := store.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.True(t, sub.CurrentPeriodEnd.After(before.CurrentPeriodEnd))

		totals, err := charges.SummarizePeriod(ctx, tenantID, time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, totals.ChargeCount)
		assert.EqualValues(t, 7900, totals.TotalAmount)
	})

	t.Run("repeated runs do not double charge", func(t *testing.T) {
		t.Parallel()
		store, charges, job := newFixture(t, staticChecker{"SUB-1": hotmart.SubscriberActive})
		tenantID := seedOverdue(t, store, "SUB-1", 3*24*time.Hour)

		require.NoError(t, job(ctx))
		require.NoError(t, job(ctx))

		totals, err := charges.SummarizePeriod(ctx, tenantID, time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, totals.ChargeCount)
	})

	t.Run("unknown subscriber is cancelled", func(t *testing.T) {
		t.Parallel()
		store, _, job := newFixture(t, staticChecker{})
		tenantID := seedOverdue(t, store, "SUB-GONE", 3*24*time.Hour)

		require.NoError(t, job(ctx))

		sub, err := store.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusCancelled, sub.Status)
	})

	t.Run("delayed subscriber is left alone", func(t *testing.T) {
		t.Parallel()
		store, _, job := newFixture(t, staticChecker{"SUB-1": hotmart.SubscriberDelayed})
		tenantID := seedOverdue(t, store, "SUB-1", 3*24*time.Hour)

		require.NoError(t, job(ctx))

		sub, err := store.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, sub.Status)
	})

	t.Run("other providers are skipped", func(t *testing.T) {
		t.Parallel()
		store, _, job := newFixture(t, staticChecker{})
		tenantID := seedOverdue(t, store, "SUB-1", 3*24*time.Hour)
		sub, err := store.Get(ctx, tenantID)
		require.NoError(t, err)
		sub.Provider = "paddle"
		require.NoError(t, store.Save(ctx, sub, subscription.StatusActive))

		require.NoError(t, job(ctx))

		after, err := store.Get(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusActive, after.Status)
	})
}
