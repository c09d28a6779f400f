// Package controller orchestrates the hosts-table editor and the process
// supervisor into the five caller-facing lifecycle operations: initialize,
// run, stop, restore, and status.
//
// The controller owns the authoritative running flag and serializes the
// mutating operations against each other; the hosts table itself is re-read
// from disk on every query and is the only state that survives a restart.
package controller
