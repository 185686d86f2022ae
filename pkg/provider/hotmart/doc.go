// Package hotmart integrates the Hotmart payment platform: it verifies
// incoming webhooks with the account hottok, normalizes the version 2
// payload shapes into reconciler events, and exposes a small API client
// used to re-check a subscriber's status when webhooks go missing.
//
// Hotmart reports renewals as PURCHASE_APPROVED with a recurrence number
// greater than one; the normalizer folds that into a renewal event so the
// rest of the system never sees the quirk.
package hotmart
