// Package scheduler runs named background jobs at fixed intervals.
//
// Each job ticks independently and carries a run-in-progress guard: a
// tick that fires while the previous run is still executing is skipped,
// so a slow batch never stacks concurrent runs of the same job. Jobs are
// expected to be idempotent; a skipped tick is made up on the next one.
package scheduler
