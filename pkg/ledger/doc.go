// Package ledger records one charge row per distinct payment event and the
// pending activations for payments that arrived before their tenant did.
//
// The (provider, external event ID) pair is the idempotency key: Record is
// an insert-if-absent, so redelivered webhooks produce at most one ledger
// effect no matter how many times the provider retries. Rows are append
// only; refunds land as new rows with a refunded status rather than
// mutating the original charge.
package ledger
