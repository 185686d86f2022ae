// Package redis connects the go-redis client with startup retries and
// exposes a healthcheck probe. The billing service uses Redis only as a
// best-effort dedupe cache; a dead Redis degrades to extra ledger reads,
// not to failures.
package redis
