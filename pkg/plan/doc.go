// Package plan provides the static subscription plan catalog.
//
// A Plan describes a priced tier with a student-count limit and a
// per-extra-student overage price. The catalog is loaded once at startup
// from a Source (in-memory for tests, YAML file in production) and is
// immutable afterwards; all lookups are pure and allocation-free.
//
// Monetary values are carried in the smallest currency unit (cents) to
// keep overage arithmetic exact. Conversion to decimal happens only at
// the presentation layer.
package plan
