package hotmart_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/coachbill/pkg/provider/hotmart"
	"github.com/dmitrymomot/coachbill/pkg/reconciler"
)

const purchasePayload = `{
	"id": "evt-abc-123",
	"event": "PURCHASE_APPROVED",
	"version": "2.0.0",
	"creation_date": 1741608000000,
	"data": {
		"product": {"id": 123456, "name": "Coaching Platform"},
		"buyer": {"email": "Coach@Example.com", "name": "Ana"},
		"purchase": {
			"transaction": "HP17264",
			"status": "APPROVED",
			"price": {"value": 79.0, "currency_value": "BRL"},
			"recurrence_number": 1
		},
		"subscription": {
			"subscriber": {"code": "SUB-9981"},
			"plan": {"name": "Starter"}
		}
	}
}`

const cancellationPayload = `{
	"id": "evt-cancel-1",
	"event": "SUBSCRIPTION_CANCELLATION",
	"creation_date": 1741608000000,
	"data": {
		"subscriber": {"code": "SUB-9981", "email": "coach@example.com"},
		"plan": {"name": "Starter"}
	}
}`

func TestWebhook_Normalize(t *testing.T) {
	t.Parallel()

	wh := hotmart.NewWebhook("secret-token")

	t.Run("first purchase", func(t *testing.T) {
		t.Parallel()
		event, err := wh.Normalize([]byte(purchasePayload))
		require.NoError(t, err)

		assert.Equal(t, "hotmart", event.Provider)
		assert.Equal(t, reconciler.EventPurchaseApproved, event.Type)
		assert.Equal(t, "evt-abc-123", event.ExternalEventID)
		assert.Equal(t, "SUB-9981", event.ExternalSubID)
		assert.Equal(t, "HP17264", event.ExternalOrderID)
		assert.Equal(t, "Coach@Example.com", event.CustomerEmail)
		assert.Equal(t, "starter", event.PlanID)
		assert.EqualValues(t, 7900, event.Amount.Amount)
		assert.Equal(t, "BRL", event.Amount.Currency)
		assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), event.OccurredAt)
	})

	t.Run("recurring purchase is a renewal", func(t *testing.T) {
		t.Parallel()
		body := []byte(purchasePayload)
		body = replaceOnce(t, body, `"recurrence_number": 1`, `"recurrence_number": 4`)

		event, err := wh.Normalize(body)
		require.NoError(t, err)
		assert.Equal(t, reconciler.EventSubscriptionRenewed, event.Type)
	})

	t.Run("refund", func(t *testing.T) {
		t.Parallel()
		body := replaceOnce(t, []byte(purchasePayload), "PURCHASE_APPROVED", "PURCHASE_REFUNDED")

		event, err := wh.Normalize(body)
		require.NoError(t, err)
		assert.Equal(t, reconciler.EventRefund, event.Type)
	})

	t.Run("chargeback", func(t *testing.T) {
		t.Parallel()
		body := replaceOnce(t, []byte(purchasePayload), "PURCHASE_APPROVED", "PURCHASE_CHARGEBACK")

		event, err := wh.Normalize(body)
		require.NoError(t, err)
		assert.Equal(t, reconciler.EventChargeback, event.Type)
	})

	t.Run("cancellation uses the flat subscriber shape", func(t *testing.T) {
		t.Parallel()
		event, err := wh.Normalize([]byte(cancellationPayload))
		require.NoError(t, err)

		assert.Equal(t, reconciler.EventSubscriptionCanceled, event.Type)
		assert.Equal(t, "SUB-9981", event.ExternalSubID)
		assert.Equal(t, "coach@example.com", event.CustomerEmail)
		assert.Equal(t, "starter", event.PlanID)
		assert.Zero(t, event.Amount.Amount)
	})

	t.Run("unknown event keeps its raw name", func(t *testing.T) {
		t.Parallel()
		body := replaceOnce(t, []byte(purchasePayload), "PURCHASE_APPROVED", "SWITCH_PLAN")

		event, err := wh.Normalize(body)
		require.NoError(t, err)
		assert.Equal(t, reconciler.EventType("SWITCH_PLAN"), event.Type)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		t.Parallel()
		_, err := wh.Normalize([]byte(`{"id": `))
		assert.ErrorIs(t, err, hotmart.ErrMalformedPayload)
	})

	t.Run("missing identifiers", func(t *testing.T) {
		t.Parallel()
		_, err := wh.Normalize([]byte(`{"event": "PURCHASE_APPROVED"}`))
		assert.ErrorIs(t, err, hotmart.ErrMalformedPayload)
	})
}

func TestWebhook_VerifyToken(t *testing.T) {
	t.Parallel()

	wh := hotmart.NewWebhook("secret-token")

	assert.NoError(t, wh.VerifyToken("secret-token"))
	assert.ErrorIs(t, wh.VerifyToken("wrong"), hotmart.ErrInvalidToken)
	assert.ErrorIs(t, wh.VerifyToken(""), hotmart.ErrInvalidToken)
}

func replaceOnce(t *testing.T, body []byte, old, new string) []byte {
	t.Helper()
	require.Contains(t, string(body), old)
	return []byte(strings.Replace(string(body), old, new, 1))
}
