// Package paddle integrates the Paddle billing platform as a second
// payment provider. It wraps the official SDK's webhook signature
// verifier and normalizes Paddle notification payloads into reconciler
// events.
//
// Paddle splits what Hotmart reports as one purchase event across
// transaction and subscription notifications; the normalizer keys on the
// transaction origin to tell an initial purchase from a recurring charge.
package paddle
