// Package preflight provides readiness checks for the filesystem paths and
// catalog endpoints Bandstand depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to serve when a check
//     fails, so misconfiguration surfaces before the first research job.
//   - The CLI "bandstand status" command renders individual results to show
//     catalog health at a glance.
package preflight
