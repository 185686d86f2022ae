// Package billing wires the billing domain into an HTTP surface: webhook
// endpoints for the payment providers, the tenant-facing subscription
// status API, the plan listing, operator actions, and the health and
// metrics endpoints.
//
// Webhook endpoints acknowledge with 200 on every outcome except a failed
// signature check. A provider that sees an error keeps redelivering; the
// ledger makes redeliveries harmless, so there is nothing to gain from
// surfacing internal failures to the provider. Infrastructure failures are
// routed to the health monitor instead.
package billing
