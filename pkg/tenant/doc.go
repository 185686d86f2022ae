// Package tenant maps customer emails to tenant identities.
//
// Payment providers identify customers by the email used at checkout,
// while the rest of the platform keys everything by tenant UUID. The
// directory owns that mapping: registration writes it, webhook
// reconciliation reads it. Lookups sit on the hot path of every webhook
// delivery, so a read-through cache decorator is provided.
package tenant
