// Package estates implements estate CRUD and collaborator management.
//
// # Overview
//
// An estate belongs to its owner; collaborators are invited with an
// EDITOR or VIEWER role. Inviting an existing collaborator updates
// their role in place, so invites and role changes share one endpoint.
// Invite and revoke are owner-only, and a revocation takes effect on
// the collaborator's very next request because access is resolved fresh
// each time.
//
// # Related Packages
//
//   - pkg/access: role resolution and the mutation guard
//   - pkg/audit: estate event recording
package estates
