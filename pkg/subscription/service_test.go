package subscription_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
)

func testCatalog(t *testing.T) *plan.Catalog {
	t.Helper()
	catalog, err := plan.NewCatalog(context.Background(), plan.NewInMemSource(map[string]plan.Plan{
		"beginner": {ID: "beginner", Name: "Beginner", StudentLimit: 5, Public: true},
		"starter":  {ID: "starter", Name: "Starter", StudentLimit: 15, Public: true},
	}))
	require.NoError(t, err)
	return catalog
}

func newTestService(t *testing.T) (*subscription.Service, subscription.Store) {
	t.Helper()
	store := subscription.NewMemStore()
	return subscription.NewService(store, testCatalog(t), slog.New(slog.DiscardHandler)), store
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newTestService(t)
	tenantID := uuid.New()

	sub, err := svc.Register(ctx, tenantID, baseTime)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusTrial, sub.Status)
	assert.Equal(t, "beginner", sub.PlanID)

	// Re-registration returns the existing subscription untouched.
	again, err := svc.Register(ctx, tenantID, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, sub.CreatedAt, again.CreatedAt)

	stored, err := store.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusTrial, stored.Status)
}

func TestService_UpdatePlan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t)
	tenantID := uuid.New()

	_, err := svc.Register(ctx, tenantID, baseTime)
	require.NoError(t, err)

	t.Run("switches to a known plan", func(t *testing.T) {
		sub, err := svc.UpdatePlan(ctx, tenantID, "starter")
		require.NoError(t, err)
		assert.Equal(t, "starter", sub.PlanID)
	})

	t.Run("rejects unknown plan before mutation", func(t *testing.T) {
		_, err := svc.UpdatePlan(ctx, tenantID, "enterprise")
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := svc.UpdatePlan(ctx, uuid.New(), "starter")
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})
}

func TestService_BlockUnblock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t)
	tenantID := uuid.New()

	_, err := svc.Register(ctx, tenantID, baseTime)
	require.NoError(t, err)

	blocked, err := svc.Block(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, blocked.Status)
	assert.NotNil(t, blocked.CancelledAt)
	assert.False(t, blocked.IsValid(time.Now()))

	unblocked, err := svc.Unblock(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusTrial, unblocked.Status)
	assert.Nil(t, unblocked.CancelledAt)
	assert.True(t, unblocked.IsValid(time.Now()))
}

func TestService_Expire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newTestService(t)
	tenantID := uuid.New()

	sub, err := svc.Register(ctx, tenantID, baseTime)
	require.NoError(t, err)

	// Promote to active with a long-lapsed period.
	active, _, err := subscription.Apply(*sub, subscription.ActionActivate, subscription.EventRef{OccurredAt: baseTime.AddDate(0, -3, 0)})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &active, subscription.StatusTrial))

	require.NoError(t, svc.Expire(ctx, tenantID))

	stored, err := store.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, stored.Status)

	// Expiring a non-active subscription leaves it untouched.
	require.NoError(t, svc.Expire(ctx, tenantID))
	stored, err = store.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusExpired, stored.Status)
}

func TestMemStore_ConditionalSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := subscription.NewMemStore()
	tenantID := uuid.New()

	sub := subscription.NewTrial(tenantID, "beginner", baseTime)
	require.NoError(t, store.Create(ctx, sub))
	assert.ErrorIs(t, store.Create(ctx, sub), subscription.ErrAlreadyExists)

	// Save against the wrong expected status loses the race.
	next := *sub
	next.Status = subscription.StatusActive
	assert.ErrorIs(t, store.Save(ctx, &next, subscription.StatusActive), subscription.ErrStale)
	require.NoError(t, store.Save(ctx, &next, subscription.StatusTrial))

	stored, err := store.Get(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, stored.Status)

	assert.ErrorIs(t, store.Save(ctx, &subscription.Subscription{TenantID: uuid.New()}, subscription.StatusTrial), subscription.ErrNotFound)
}

func TestMemStore_ListActiveEndedBefore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := subscription.NewMemStore()

	// Insertion order deliberately scrambled relative to period ends.
	for _, daysAgo := range []int{2, 5, 1, 4, 3} {
		sub := subscription.NewTrial(uuid.New(), "starter", baseTime.AddDate(0, -2, 0))
		sub.Status = subscription.StatusActive
		sub.CurrentPeriodEnd = baseTime.AddDate(0, 0, -daysAgo)
		require.NoError(t, store.Create(ctx, sub))
	}
	cancelled := subscription.NewTrial(uuid.New(), "starter", baseTime.AddDate(0, -2, 0))
	cancelled.Status = subscription.StatusCancelled
	cancelled.CurrentPeriodEnd = baseTime.AddDate(0, 0, -10)
	require.NoError(t, store.Create(ctx, cancelled))

	// A backlog larger than the limit must drain oldest first, so repeated
	// batches make progress instead of revisiting arbitrary rows.
	batch, err := store.ListActiveEndedBefore(ctx, baseTime, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, baseTime.AddDate(0, 0, -5), batch[0].CurrentPeriodEnd)
	assert.Equal(t, baseTime.AddDate(0, 0, -4), batch[1].CurrentPeriodEnd)

	all, err := store.ListActiveEndedBefore(ctx, baseTime, 10)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
