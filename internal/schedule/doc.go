// Package schedule turns raw workbook rows into an ordered list of tasks.
//
// The pipeline per row is Normalize -> Derive, folded by Build into a
// Result. Row-local failures never abort the batch; they become
// diagnostics. Only an empty result is reported as an error, and even then
// the diagnostics are returned alongside it.
package schedule
