package hotmart_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/coachbill/pkg/provider/hotmart"
)

func staticToken() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
}

func TestClient_SubscriberStatus(t *testing.T) {
	t.Parallel()

	t.Run("active subscriber", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/payments/api/v1/subscriptions", r.URL.Path)
			assert.Equal(t, "SUB-9981", r.URL.Query().Get("subscriber_code"))
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":[{"subscriber_code":"SUB-9981","status":"ACTIVE"}]}`))
		}))
		t.Cleanup(srv.Close)

		client := hotmart.NewClient(hotmart.Config{BaseURL: srv.URL}, hotmart.WithTokenSource(staticToken()))
		status, err := client.SubscriberStatus(context.Background(), "SUB-9981")
		require.NoError(t, err)
		assert.Equal(t, hotmart.SubscriberActive, status)
	})

	t.Run("delayed subscriber", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"items":[{"subscriber_code":"SUB-1","status":"DELAYED"}]}`))
		}))
		t.Cleanup(srv.Close)

		client := hotmart.NewClient(hotmart.Config{BaseURL: srv.URL}, hotmart.WithTokenSource(staticToken()))
		status, err := client.SubscriberStatus(context.Background(), "SUB-1")
		require.NoError(t, err)
		assert.Equal(t, hotmart.SubscriberDelayed, status)
	})

	t.Run("unknown subscriber", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"items":[]}`))
		}))
		t.Cleanup(srv.Close)

		client := hotmart.NewClient(hotmart.Config{BaseURL: srv.URL}, hotmart.WithTokenSource(staticToken()))
		_, err := client.SubscriberStatus(context.Background(), "SUB-404")
		assert.ErrorIs(t, err, hotmart.ErrSubscriberNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)

		client := hotmart.NewClient(hotmart.Config{BaseURL: srv.URL}, hotmart.WithTokenSource(staticToken()))
		_, err := client.SubscriberStatus(context.Background(), "SUB-1")
		assert.ErrorIs(t, err, hotmart.ErrRequestFailed)
	})
}
