package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/coachbill/pkg/billing"
	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
	"github.com/dmitrymomot/coachbill/pkg/usage"
)

// subscriptionStatus is the tenant-facing billing view: the stored state,
// the derived state the product should display, live usage against the
// plan limit, and the current period's charges.
type subscriptionStatus struct {
	TenantID         uuid.UUID              `json:"tenant_id"`
	PlanID           string                 `json:"plan_id"`
	Status           subscription.Status    `json:"status"`
	EffectiveStatus  subscription.Status    `json:"effective_status"`
	Valid            bool                   `json:"valid"`
	CurrentPeriodEnd *time.Time             `json:"current_period_end,omitempty"`
	Usage            usage.LimitReport      `json:"usage"`
	TotalMonthlyCost plan.Money             `json:"total_monthly_cost"`
	PeriodSummary    *billing.PeriodSummary `json:"period_summary,omitempty"`
}

type registerRequest struct {
	Email string `json:"email"`
}

type registerResponse struct {
	TenantID       uuid.UUID           `json:"tenant_id"`
	PlanID         string              `json:"plan_id"`
	Status         subscription.Status `json:"status"`
	ClaimedPending bool                `json:"claimed_pending"`
}

type updatePlanRequest struct {
	PlanID string `json:"plan_id"`
}

func tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_tenant_id", "tenant ID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Service) handleListPlans(w http.ResponseWriter, r *http.Request) {
	all := s.deps.Catalog.List()
	public := make([]plan.Plan, 0, len(all))
	for _, p := range all {
		if p.Public {
			public = append(public, p)
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"plans": public})
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		respondError(w, http.StatusUnprocessableEntity, "validation_error", "email is required")
		return
	}

	ctx := r.Context()
	if s.deps.Directory != nil {
		// Recorded before the trial: a webhook landing mid-registration
		// must already resolve the email.
		if err := s.deps.Directory.Upsert(ctx, id, req.Email); err != nil {
			s.log.ErrorContext(ctx, "tenant directory write failed",
				slog.String("tenant_id", id.String()),
				slog.String("error", err.Error()))
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to register tenant")
			return
		}
	}

	sub, err := s.deps.Subscriptions.Register(ctx, id, time.Now().UTC())
	if err != nil {
		s.log.ErrorContext(ctx, "tenant registration failed",
			slog.String("tenant_id", id.String()),
			slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to register tenant")
		return
	}

	claimed, err := s.deps.Reconciler.ClaimPending(ctx, id, req.Email)
	if err != nil {
		// The trial exists; the purchase will be re-claimed on the next
		// matching webhook or registration retry.
		s.log.ErrorContext(ctx, "pending activation claim failed",
			slog.String("tenant_id", id.String()),
			slog.String("error", err.Error()))
	}
	if claimed {
		if fresh, err := s.deps.Store.Get(ctx, id); err == nil {
			sub = fresh
		}
	}

	respondJSON(w, http.StatusCreated, registerResponse{
		TenantID:       sub.TenantID,
		PlanID:         sub.PlanID,
		Status:         sub.Status,
		ClaimedPending: claimed,
	})
}

func (s *Service) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	sub, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "no subscription for tenant")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load subscription")
		return
	}

	report, err := s.deps.Tracker.CheckStudentLimit(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute usage")
		return
	}

	now := time.Now().UTC()
	status := subscriptionStatus{
		TenantID:         sub.TenantID,
		PlanID:           sub.PlanID,
		Status:           sub.Status,
		EffectiveStatus:  sub.EffectiveStatus(now),
		Valid:            sub.IsValid(now),
		Usage:            report,
		TotalMonthlyCost: billing.TotalMonthlyCost(report.CurrentStudents, report.Plan),
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		status.CurrentPeriodEnd = &end

		summary, err := s.deps.Summarizer.PeriodSummary(ctx, id, report.Plan,
			report.CurrentStudents, end.AddDate(0, -1, 0), end)
		if err == nil {
			status.PeriodSummary = &summary
		}
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Service) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req updatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		respondError(w, http.StatusUnprocessableEntity, "validation_error", "plan_id is required")
		return
	}

	sub, err := s.deps.Subscriptions.UpdatePlan(r.Context(), id, req.PlanID)
	if err != nil {
		s.respondMutationError(w, r, err, "failed to update plan")
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Service) handleBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}

	sub, err := s.deps.Subscriptions.Block(r.Context(), id)
	if err != nil {
		s.respondMutationError(w, r, err, "failed to block tenant")
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Service) handleUnblock(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}

	sub, err := s.deps.Subscriptions.Unblock(r.Context(), id)
	if err != nil {
		s.respondMutationError(w, r, err, "failed to unblock tenant")
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Service) respondMutationError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, subscription.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "no subscription for tenant")
	case errors.Is(err, plan.ErrPlanNotFound):
		respondError(w, http.StatusUnprocessableEntity, "validation_error", "unknown plan")
	case errors.Is(err, subscription.ErrStale):
		respondError(w, http.StatusConflict, "conflict", "concurrent update, retry")
	default:
		s.log.ErrorContext(r.Context(), message, slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal_error", message)
	}
}
