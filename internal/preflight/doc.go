// Package preflight provides readiness checks for the filesystem paths and
// optional services Splice depends on.
//
// These checks run in two contexts:
//   - The daemon logs a snapshot of RunAll at startup.
//   - The CLI "splice status" command prints the same results next to the
//     daemon summary.
package preflight
