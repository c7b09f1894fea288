// Package preflight provides readiness checks for the data directory that
// backs a persistent repository.
//
// The CLI "inpaint check" command runs RunAll and renders the results; the
// other commands call RunAll before opening a persistent repository and stop
// on the first failure so problems surface before any state is touched.
package preflight
