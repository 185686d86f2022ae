// Package subscription holds the canonical per-tenant subscription state
// and its transition rules.
//
// Each tenant has exactly one subscription, created implicitly as trial at
// signup and never deleted, only transitioned. Transitions are expressed as
// a closed action set (activate, renew, deactivate) with one pure
// transition function per action, so each rule is independently testable
// and the mapping is total by construction.
//
// The store's Save is a conditional update keyed by tenant ID and the
// expected prior status. All concurrency safety comes from that
// compare-and-save plus the charge ledger's idempotency key; there are no
// long-lived in-process locks on the mutation path.
package subscription
