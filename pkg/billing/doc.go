// Package billing computes overage amounts and billing-period summaries.
//
// All arithmetic is integer math in minor currency units, so results are
// exact; conversion to decimal belongs to the presentation layer. The
// calculators are defensive rather than throwing: malformed or negative
// student counts clamp to zero because a usage-tracking glitch must never
// block legitimate product usage.
package billing
