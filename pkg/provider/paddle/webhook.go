package paddle

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	sdk "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/reconciler"
)

// Provider is the name stamped on normalized events and ledger rows.
const Provider = "paddle"

// Config holds Paddle integration settings.
type Config struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
}

// Verifier checks a webhook request's signature. The SDK's
// WebhookVerifier satisfies it; tests substitute a fake.
type Verifier interface {
	Verify(req *http.Request) (bool, error)
}

// Webhook verifies and normalizes Paddle webhook deliveries.
type Webhook struct {
	verifier Verifier
}

// NewWebhook creates a webhook handler using the SDK signature verifier.
// Panics on an empty secret because an unverified endpoint would accept
// spoofed payment events.
func NewWebhook(secret string) *Webhook {
	if secret == "" {
		panic("paddle: webhook secret is required")
	}
	return &Webhook{verifier: sdk.NewWebhookVerifier(secret)}
}

// NewWebhookWithVerifier creates a webhook handler with a custom verifier.
func NewWebhookWithVerifier(verifier Verifier) *Webhook {
	if verifier == nil {
		panic("paddle: verifier is required")
	}
	return &Webhook{verifier: verifier}
}

// VerifyRequest validates the Paddle-Signature header against the body.
// The SDK verifier restores the request body after reading it.
func (w *Webhook) VerifyRequest(req *http.Request) error {
	valid, err := w.verifier.Verify(req)
	if err != nil {
		return errors.Join(ErrInvalidSignature, err)
	}
	if !valid {
		return ErrInvalidSignature
	}
	return nil
}

type payload struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       struct {
		ID             string `json:"id"`
		SubscriptionID string `json:"subscription_id"`
		TransactionID  string `json:"transaction_id"`
		Origin         string `json:"origin"`
		Action         string `json:"action"`
		CurrencyCode   string `json:"currency_code"`
		CustomData     struct {
			Email  string `json:"email"`
			PlanID string `json:"plan_id"`
		} `json:"custom_data"`
		Details struct {
			Totals struct {
				Total string `json:"total"` // minor units as a string
			} `json:"totals"`
		} `json:"details"`
		Totals struct {
			Total string `json:"total"`
		} `json:"totals"`
		Items []struct {
			Price struct {
				ID        string `json:"id"`
				ProductID string `json:"product_id"`
			} `json:"price"`
		} `json:"items"`
	} `json:"data"`
}

// Normalize parses a raw notification body into a reconciler event.
// Unmapped event types pass through with their raw name, which the
// reconciler resolves to no action.
func (w *Webhook) Normalize(body []byte) (reconciler.Event, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return reconciler.Event{}, errors.Join(ErrMalformedPayload, err)
	}
	if p.EventID == "" || p.EventType == "" {
		return reconciler.Event{}, ErrMalformedPayload
	}

	amount, err := totalCents(p)
	if err != nil {
		return reconciler.Event{}, err
	}

	event := reconciler.Event{
		Provider:        Provider,
		Type:            eventTypeFor(p),
		ExternalEventID: p.EventID,
		ExternalSubID:   subscriptionID(p),
		ExternalOrderID: transactionID(p),
		CustomerEmail:   p.Data.CustomData.Email,
		PlanID:          planID(p),
		Amount:          plan.Money{Amount: amount, Currency: p.Data.CurrencyCode},
		OccurredAt:      p.OccurredAt.UTC(),
	}
	return event, nil
}

// eventTypeFor maps Paddle notification types onto the normalized set.
// A completed transaction with a recurring origin is a renewal charge on
// an existing subscription.
func eventTypeFor(p payload) reconciler.EventType {
	switch p.EventType {
	case "transaction.completed":
		if p.Data.Origin == "subscription_recurring" {
			return reconciler.EventSubscriptionRenewed
		}
		return reconciler.EventPurchaseApproved
	case "subscription.created":
		return reconciler.EventSubscriptionCreated
	case "subscription.canceled":
		return reconciler.EventSubscriptionCanceled
	case "adjustment.created", "adjustment.updated":
		switch p.Data.Action {
		case "refund":
			return reconciler.EventRefund
		case "chargeback":
			return reconciler.EventChargeback
		}
		return reconciler.EventType(p.EventType)
	default:
		return reconciler.EventType(p.EventType)
	}
}

func subscriptionID(p payload) string {
	if p.Data.SubscriptionID != "" {
		return p.Data.SubscriptionID
	}
	return p.Data.ID
}

// transactionID picks the order reference: adjustments point back at the
// transaction they amend, transactions are the order themselves.
func transactionID(p payload) string {
	if p.Data.TransactionID != "" {
		return p.Data.TransactionID
	}
	return p.Data.ID
}

// planID prefers the explicit custom-data mapping set at checkout; the
// product ID is the fallback when checkout did not carry one.
func planID(p payload) string {
	if p.Data.CustomData.PlanID != "" {
		return p.Data.CustomData.PlanID
	}
	if len(p.Data.Items) > 0 {
		if p.Data.Items[0].Price.ProductID != "" {
			return p.Data.Items[0].Price.ProductID
		}
		return p.Data.Items[0].Price.ID
	}
	return ""
}

// totalCents reads Paddle's total, which is already in minor units but
// serialized as a string. Transactions nest it under details, adjustments
// keep it at the top of data.
func totalCents(p payload) (int64, error) {
	raw := p.Data.Details.Totals.Total
	if raw == "" {
		raw = p.Data.Totals.Total
	}
	if raw == "" {
		return 0, nil
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: total %q", ErrMalformedPayload, raw)
	}
	return amount, nil
}
