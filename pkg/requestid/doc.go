// Package requestid tags every request with an identifier so a webhook
// delivery can be traced across the access log, the reconciler's audit
// records and a provider's delivery dashboard. An inbound X-Request-ID
// is honored when well-formed; anything else gets a fresh UUID.
package requestid
