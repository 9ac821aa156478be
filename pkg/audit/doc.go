// Package audit records who did what on an estate.
//
// # Overview
//
// Every mutation in the resource packages records an Event through the
// Logger interface. DBLogger persists events to the estate_events table
// and backs the read-only listing endpoint; FileLogger appends JSON
// lines to a writer; MultiLogger fans one event out to several sinks.
//
// Recording is best-effort from the caller's point of view: services
// log a failed write but never fail the mutation over it.
//
// # Related Packages
//
//   - pkg/access: gates the event listing behind estate membership
package audit
