package hotmart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// SubscriberStatus is Hotmart's own status vocabulary for a subscription.
type SubscriberStatus string

const (
	SubscriberActive    SubscriberStatus = "ACTIVE"
	SubscriberDelayed   SubscriberStatus = "DELAYED"
	SubscriberInactive  SubscriberStatus = "INACTIVE"
	SubscriberCancelled SubscriberStatus = "CANCELLED_BY_CUSTOMER"
)

// Client is a minimal Hotmart API client. It only covers the subscription
// status lookup the overdue cure job needs; everything else arrives via
// webhooks.
type Client struct {
	http    *http.Client
	baseURL string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithTokenSource overrides the OAuth token source. Tests inject a static
// source here instead of hitting the token endpoint.
func WithTokenSource(ts oauth2.TokenSource) ClientOption {
	return func(c *Client) {
		c.http = oauth2.NewClient(context.Background(), ts)
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client using the client-credentials grant. The
// token source caches the access token and refreshes it on expiry, so
// repeated calls do not re-authenticate.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.BaseURL + "/security/oauth/token",
	}

	c := &Client{
		http:    cc.Client(context.Background()),
		baseURL: cfg.BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Timeout == 0 {
		c.http.Timeout = 15 * time.Second
	}
	return c
}

// SubscriberStatus fetches the current status of a subscriber.
// Returns ErrSubscriberNotFound when Hotmart has no subscription for the
// code, which the cure job treats the same as cancelled.
func (c *Client) SubscriberStatus(ctx context.Context, subscriberCode string) (SubscriberStatus, error) {
	endpoint := c.baseURL + "/payments/api/v1/subscriptions?" + url.Values{
		"subscriber_code": {subscriberCode},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrSubscriberNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", ErrRequestFailed, resp.StatusCode)
	}

	var out struct {
		Items []struct {
			SubscriberCode string           `json:"subscriber_code"`
			Status         SubscriberStatus `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	if len(out.Items) == 0 {
		return "", ErrSubscriberNotFound
	}
	return out.Items[0].Status, nil
}
