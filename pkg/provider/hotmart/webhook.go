package hotmart

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/reconciler"
)

// Provider is the name stamped on normalized events and ledger rows.
const Provider = "hotmart"

// HottokHeader carries the account token Hotmart sends with every webhook.
const HottokHeader = "X-HOTMART-HOTTOK"

// Config holds Hotmart integration settings.
type Config struct {
	Hottok       string `env:"HOTMART_HOTTOK,required"`
	ClientID     string `env:"HOTMART_CLIENT_ID"`
	ClientSecret string `env:"HOTMART_CLIENT_SECRET"`
	BaseURL      string `env:"HOTMART_API_URL" envDefault:"https://developers.hotmart.com"`
}

// Webhook verifies and normalizes Hotmart webhook deliveries.
type Webhook struct {
	hottok string
}

// NewWebhook creates a webhook handler. Panics on an empty hottok because
// an unverified webhook endpoint would accept spoofed payment events.
func NewWebhook(hottok string) *Webhook {
	if hottok == "" {
		panic("hotmart: hottok is required")
	}
	return &Webhook{hottok: hottok}
}

// VerifyToken checks the hottok header value in constant time.
func (w *Webhook) VerifyToken(token string) error {
	if subtle.ConstantTimeCompare([]byte(token), []byte(w.hottok)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// payload covers both version 2 webhook shapes: purchase events nest the
// buyer and purchase under data, while cancellation events flatten the
// subscriber to the top of data.
type payload struct {
	ID           string `json:"id"`
	Event        string `json:"event"`
	CreationDate int64  `json:"creation_date"` // unix millis
	Data         struct {
		Buyer struct {
			Email string `json:"email"`
		} `json:"buyer"`
		Purchase struct {
			Transaction string `json:"transaction"`
			Price       struct {
				Value         float64 `json:"value"`
				CurrencyValue string  `json:"currency_value"`
			} `json:"price"`
			RecurrenceNumber int `json:"recurrence_number"`
		} `json:"purchase"`
		Subscription struct {
			Subscriber struct {
				Code string `json:"code"`
			} `json:"subscriber"`
			Plan struct {
				Name string `json:"name"`
			} `json:"plan"`
		} `json:"subscription"`
		Subscriber struct {
			Code  string `json:"code"`
			Email string `json:"email"`
		} `json:"subscriber"`
		Plan struct {
			Name string `json:"name"`
		} `json:"plan"`
	} `json:"data"`
}

// Normalize parses a raw webhook body into a reconciler event. Event
// types outside the known set pass through with their raw name, which the
// reconciler resolves to no action.
func (w *Webhook) Normalize(body []byte) (reconciler.Event, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return reconciler.Event{}, errors.Join(ErrMalformedPayload, err)
	}
	if p.ID == "" || p.Event == "" {
		return reconciler.Event{}, ErrMalformedPayload
	}

	event := reconciler.Event{
		Provider:        Provider,
		Type:            eventTypeFor(p),
		ExternalEventID: p.ID,
		ExternalSubID:   subscriberCode(p),
		ExternalOrderID: p.Data.Purchase.Transaction,
		CustomerEmail:   customerEmail(p),
		PlanID:          planName(p),
		Amount: plan.Money{
			Amount:   toCents(p.Data.Purchase.Price.Value),
			Currency: p.Data.Purchase.Price.CurrencyValue,
		},
		OccurredAt: time.UnixMilli(p.CreationDate).UTC(),
	}
	return event, nil
}

// eventTypeFor maps Hotmart event names onto the normalized set. A
// PURCHASE_APPROVED past the first recurrence is a renewal of an existing
// subscription, not a new purchase.
func eventTypeFor(p payload) reconciler.EventType {
	switch p.Event {
	case "PURCHASE_APPROVED", "PURCHASE_COMPLETE":
		if p.Data.Purchase.RecurrenceNumber > 1 {
			return reconciler.EventSubscriptionRenewed
		}
		return reconciler.EventPurchaseApproved
	case "PURCHASE_REFUNDED":
		return reconciler.EventRefund
	case "PURCHASE_CHARGEBACK":
		return reconciler.EventChargeback
	case "SUBSCRIPTION_CANCELLATION":
		return reconciler.EventSubscriptionCanceled
	default:
		return reconciler.EventType(p.Event)
	}
}

func subscriberCode(p payload) string {
	if p.Data.Subscription.Subscriber.Code != "" {
		return p.Data.Subscription.Subscriber.Code
	}
	return p.Data.Subscriber.Code
}

func customerEmail(p payload) string {
	if p.Data.Buyer.Email != "" {
		return p.Data.Buyer.Email
	}
	return p.Data.Subscriber.Email
}

func planName(p payload) string {
	name := p.Data.Subscription.Plan.Name
	if name == "" {
		name = p.Data.Plan.Name
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// toCents converts Hotmart's decimal price to integer minor units.
// Rounding guards against float artifacts like 79.0000000001.
func toCents(value float64) int64 {
	return int64(math.Round(value * 100))
}
