package billing

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/coachbill/pkg/requestid"
)

// Router assembles the HTTP surface.
func Router(s *Service) chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/hotmart", s.handleHotmartWebhook)
		r.Post("/paddle", s.handlePaddleWebhook)
	})

	r.Get("/plans", s.handleListPlans)

	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Get("/subscription", s.handleSubscriptionStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Put("/plan", s.handleUpdatePlan)
			r.Post("/block", s.handleBlock)
			r.Post("/unblock", s.handleUnblock)
		})
	})

	return r
}

// requireAdmin gates operator endpoints behind a static token. The
// comparison is constant time; an unset token rejects everything.
func (s *Service) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if s.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := http.StatusOK
	components := make(map[string]string, len(s.checks))

	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			components[name] = "ok"
		}
	}

	var failing []string
	if s.monitor != nil {
		failing = s.monitor.Failing()
		if len(failing) > 0 {
			status = http.StatusServiceUnavailable
		}
	}

	respondJSON(w, status, map[string]any{
		"status":     http.StatusText(status),
		"components": components,
		"failing":    failing,
	})
}
