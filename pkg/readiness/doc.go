// Package readiness assesses how close an estate is to settlement and
// generates an action plan for what remains.
//
// # Overview
//
// The Collector gathers signals from across the estate in parallel:
// missing will, missing death certificate, unpaid rent, overdue tasks,
// utilities still active. The Planner turns a signal set into ordered
// plan steps through a TextProvider, validating the provider's JSON
// strictly before trusting it.
//
// Plans are cached in an LRU keyed by a fingerprint of the sorted
// signal set, so a plan regenerates exactly when the signals change.
// Failed builds are never cached.
package readiness
