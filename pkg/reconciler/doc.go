// Package reconciler turns heterogeneous, possibly-duplicated,
// possibly-out-of-order payment provider events into safe subscription
// transitions and charge ledger rows.
//
// Processing is synchronous and idempotent. The charge ledger's
// (provider, event ID) key claims each event exactly once; a redelivery
// returns the previously recorded result without re-applying anything.
// Events whose email matches no registered tenant become pending
// activations, claimed automatically when the tenant signs up. A renewal
// for a subscription with no prior activation is treated as an implicit
// activation: the renewal itself proves the subscription exists upstream.
//
// The reconciler never surfaces an error to the paying customer; callers
// at the webhook boundary acknowledge the provider regardless and route
// infrastructure failures to the health monitor.
package reconciler
