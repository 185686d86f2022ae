package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/coachbill/pkg/provider/hotmart"
	"github.com/dmitrymomot/coachbill/pkg/provider/paddle"
	"github.com/dmitrymomot/coachbill/pkg/reconciler"
	"github.com/dmitrymomot/coachbill/pkg/requestid"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
)

// maxWebhookBody caps webhook payload reads. Provider payloads are a few
// KB; anything near the limit is abuse.
const maxWebhookBody = 1 << 20

// webhookAck is the body every acknowledged delivery receives.
type webhookAck struct {
	Received  bool   `json:"received"`
	Action    string `json:"action,omitempty"`
	Status    string `json:"status,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Pending   bool   `json:"pending,omitempty"`
}

func (s *Service) handleHotmartWebhook(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Hotmart.VerifyToken(r.Header.Get(hotmart.HottokHeader)); err != nil {
		s.metrics.observe(hotmart.Provider, outcomeUnauthorized)
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook token")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.metrics.observe(hotmart.Provider, outcomeMalformed)
		respondJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	event, err := s.deps.Hotmart.Normalize(body)
	if err != nil {
		s.log.WarnContext(r.Context(), "unparseable hotmart payload",
			slog.String("error", err.Error()))
		s.metrics.observe(hotmart.Provider, outcomeMalformed)
		respondJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	s.processEvent(w, r, event)
}

func (s *Service) handlePaddleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)

	if err := s.deps.Paddle.VerifyRequest(r); err != nil {
		s.metrics.observe(paddle.Provider, outcomeUnauthorized)
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook signature")
		return
	}

	// The SDK verifier restores the body after reading it for the
	// signature check.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.metrics.observe(paddle.Provider, outcomeMalformed)
		respondJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	event, err := s.deps.Paddle.Normalize(body)
	if err != nil {
		s.log.WarnContext(r.Context(), "unparseable paddle payload",
			slog.String("error", err.Error()))
		s.metrics.observe(paddle.Provider, outcomeMalformed)
		respondJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	s.processEvent(w, r, event)
}

// processEvent runs the reconciler and always acknowledges: the provider
// retries on non-2xx, and retries cannot fix an internal failure that the
// ledger already makes safe to replay. Failures feed the health monitor.
func (s *Service) processEvent(w http.ResponseWriter, r *http.Request, event reconciler.Event) {
	component := "webhook:" + event.Provider

	res, err := s.deps.Reconciler.Process(r.Context(), event)
	if err != nil {
		if errors.Is(err, reconciler.ErrMalformedEvent) {
			s.metrics.observe(event.Provider, outcomeMalformed)
			respondJSON(w, http.StatusOK, webhookAck{Received: true})
			return
		}

		s.log.ErrorContext(r.Context(), "webhook processing failed",
			slog.String("provider", event.Provider),
			slog.String("event_id", event.ExternalEventID),
			slog.String("error", err.Error()),
			requestid.Attr(r.Context()))
		s.fail(r.Context(), component, err)
		s.metrics.observe(event.Provider, outcomeFailed)
		respondJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	s.ok(component)
	s.metrics.observe(event.Provider, outcomeFor(res))

	respondJSON(w, http.StatusOK, webhookAck{
		Received:  true,
		Action:    string(res.Action),
		Status:    string(res.Status),
		Duplicate: res.Duplicate,
		Pending:   res.Pending,
	})
}

func outcomeFor(res reconciler.Result) string {
	switch {
	case res.Duplicate:
		return outcomeDuplicate
	case res.Pending:
		return outcomePending
	case res.Action == subscription.ActionNone || res.Action == "":
		return outcomeIgnored
	default:
		return outcomeAccepted
	}
}
