// Package usage classifies a tenant's live student count against its plan
// and recommends a better-fitting tier when usage approaches the limit.
//
// The tracker never keeps a counter of its own: every check issues a fresh
// authoritative count through the injected StudentCounterFunc, accepting
// the small latency cost so concurrent student creation and removal cannot
// desynchronize the snapshot from reality. Overage is billed, not blocked;
// only cancelled or expired subscriptions are refused new students.
package usage
