package subscription_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coachbill/pkg/subscription"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func trialSub() subscription.Subscription {
	return *subscription.NewTrial(uuid.New(), "starter", baseTime.AddDate(0, -1, 0))
}

func activeSub(periodEnd time.Time) subscription.Subscription {
	sub := trialSub()
	sub.Status = subscription.StatusActive
	sub.CurrentPeriodEnd = periodEnd
	return sub
}

func ref(at time.Time) subscription.EventRef {
	return subscription.EventRef{
		Provider:   "hotmart",
		SubID:      "sub-123",
		OrderID:    "order-456",
		OccurredAt: at,
	}
}

func TestApply_Activate(t *testing.T) {
	t.Parallel()

	t.Run("from trial", func(t *testing.T) {
		t.Parallel()
		next, changed, err := subscription.Apply(trialSub(), subscription.ActionActivate, ref(baseTime))
		require.NoError(t, err)
		require.True(t, changed)
		assert.Equal(t, subscription.StatusActive, next.Status)
		assert.Equal(t, baseTime.AddDate(0, 1, 0), next.CurrentPeriodEnd)
		assert.Equal(t, "hotmart", next.Provider)
		assert.Equal(t, "sub-123", next.ProviderSubID)
	})

	t.Run("from cancelled revives", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(baseTime)
		cancelledAt := baseTime.AddDate(0, 0, -3)
		sub.Status = subscription.StatusCancelled
		sub.CancelledAt = &cancelledAt

		next, changed, err := subscription.Apply(sub, subscription.ActionActivate, ref(baseTime))
		require.NoError(t, err)
		require.True(t, changed)
		assert.Equal(t, subscription.StatusActive, next.Status)
		assert.Nil(t, next.CancelledAt)
	})
}

func TestApply_Renew(t *testing.T) {
	t.Parallel()

	t.Run("advances from the existing period end", func(t *testing.T) {
		t.Parallel()
		periodEnd := baseTime.AddDate(0, 0, 10)
		next, changed, err := subscription.Apply(activeSub(periodEnd), subscription.ActionRenew, ref(baseTime))
		require.NoError(t, err)
		require.True(t, changed)
		assert.Equal(t, periodEnd.AddDate(0, 1, 0), next.CurrentPeriodEnd)
	})

	t.Run("advances from occurrence time when period lapsed", func(t *testing.T) {
		t.Parallel()
		periodEnd := baseTime.AddDate(0, 0, -10)
		next, _, err := subscription.Apply(activeSub(periodEnd), subscription.ActionRenew, ref(baseTime))
		require.NoError(t, err)
		assert.Equal(t, baseTime.AddDate(0, 1, 0), next.CurrentPeriodEnd)
	})

	t.Run("two distinct renewals advance twice", func(t *testing.T) {
		t.Parallel()
		periodEnd := baseTime.AddDate(0, 0, 5)
		sub := activeSub(periodEnd)

		first, changed, err := subscription.Apply(sub, subscription.ActionRenew, ref(baseTime))
		require.NoError(t, err)
		require.True(t, changed)

		second, changed, err := subscription.Apply(first, subscription.ActionRenew, ref(baseTime.Add(time.Minute)))
		require.NoError(t, err)
		require.True(t, changed)

		assert.Equal(t, periodEnd.AddDate(0, 2, 0), second.CurrentPeriodEnd)
		assert.Equal(t, subscription.StatusActive, second.Status)
	})

	t.Run("renew on trial is an implicit activation", func(t *testing.T) {
		t.Parallel()
		next, changed, err := subscription.Apply(trialSub(), subscription.ActionRenew, ref(baseTime))
		require.NoError(t, err)
		require.True(t, changed)
		assert.Equal(t, subscription.StatusActive, next.Status)
		assert.Equal(t, baseTime.AddDate(0, 1, 0), next.CurrentPeriodEnd)
	})

	t.Run("renew on cancelled is a no-op", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(baseTime)
		sub.Status = subscription.StatusCancelled

		next, changed, err := subscription.Apply(sub, subscription.ActionRenew, ref(baseTime))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, subscription.StatusCancelled, next.Status)
	})

	t.Run("renew on expired is a no-op", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(baseTime)
		sub.Status = subscription.StatusExpired

		_, changed, err := subscription.Apply(sub, subscription.ActionRenew, ref(baseTime))
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestApply_Deactivate(t *testing.T) {
	t.Parallel()

	t.Run("cancels an active subscription", func(t *testing.T) {
		t.Parallel()
		next, changed, err := subscription.Apply(activeSub(baseTime.AddDate(0, 0, 20)), subscription.ActionDeactivate, ref(baseTime))
		require.NoError(t, err)
		require.True(t, changed)
		assert.Equal(t, subscription.StatusCancelled, next.Status)
		require.NotNil(t, next.CancelledAt)
		assert.Equal(t, baseTime, *next.CancelledAt)
	})

	t.Run("idempotent on already cancelled", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(baseTime)
		sub.Status = subscription.StatusCancelled

		_, changed, err := subscription.Apply(sub, subscription.ActionDeactivate, ref(baseTime))
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestApply_EventReplay(t *testing.T) {
	t.Parallel()

	t.Run("replaying the producing event changes nothing", func(t *testing.T) {
		t.Parallel()
		r := ref(baseTime)
		r.EventID = "evt-1"

		first, changed, err := subscription.Apply(trialSub(), subscription.ActionActivate, r)
		require.NoError(t, err)
		require.True(t, changed)
		assert.Equal(t, "evt-1", first.LastEventID)

		again, changed, err := subscription.Apply(first, subscription.ActionActivate, r)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, first, again)
	})

	t.Run("a distinct event still applies", func(t *testing.T) {
		t.Parallel()
		r := ref(baseTime)
		r.EventID = "evt-1"
		first, _, err := subscription.Apply(trialSub(), subscription.ActionActivate, r)
		require.NoError(t, err)

		r2 := ref(baseTime.AddDate(0, 1, 0))
		r2.EventID = "evt-2"
		next, changed, err := subscription.Apply(first, subscription.ActionRenew, r2)
		require.NoError(t, err)
		require.True(t, changed)
		assert.Equal(t, "evt-2", next.LastEventID)
		assert.Equal(t, baseTime.AddDate(0, 2, 0), next.CurrentPeriodEnd)
	})
}

func TestApply_NoneAndUnknown(t *testing.T) {
	t.Parallel()

	sub := activeSub(baseTime)

	next, changed, err := subscription.Apply(sub, subscription.ActionNone, ref(baseTime))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, sub, next)

	_, _, err = subscription.Apply(sub, subscription.Action("bogus"), ref(baseTime))
	assert.ErrorIs(t, err, subscription.ErrUnknownAction)
}

func TestSubscription_IsValid(t *testing.T) {
	t.Parallel()

	periodEnd := baseTime

	tests := []struct {
		name  string
		sub   subscription.Subscription
		now   time.Time
		valid bool
	}{
		{"trial always valid", trialSub(), baseTime.AddDate(1, 0, 0), true},
		{"active before period end", activeSub(periodEnd), periodEnd.Add(-time.Hour), true},
		{"active within grace", activeSub(periodEnd), periodEnd.Add(23 * time.Hour), true},
		{"active at grace boundary", activeSub(periodEnd), periodEnd.Add(24 * time.Hour), true},
		{"active past grace", activeSub(periodEnd), periodEnd.Add(24*time.Hour + time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.valid, tt.sub.IsValid(tt.now))
		})
	}

	t.Run("cancelled never valid", func(t *testing.T) {
		t.Parallel()
		sub := activeSub(periodEnd.AddDate(0, 1, 0))
		sub.Status = subscription.StatusCancelled
		assert.False(t, sub.IsValid(baseTime))
	})
}

func TestSubscription_EffectiveStatus(t *testing.T) {
	t.Parallel()

	periodEnd := baseTime
	sub := activeSub(periodEnd)

	assert.Equal(t, subscription.StatusActive, sub.EffectiveStatus(periodEnd.Add(time.Hour)))
	assert.Equal(t, subscription.StatusOverdue, sub.EffectiveStatus(periodEnd.Add(25*time.Hour)))

	trial := trialSub()
	assert.Equal(t, subscription.StatusTrial, trial.EffectiveStatus(baseTime.AddDate(2, 0, 0)))
}
