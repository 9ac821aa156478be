// Package auth manages users and opaque bearer sessions.
//
// Users are provisioned on first SSO login, keyed by provider subject.
// Session tokens are random, returned to the client once, and stored
// only as sha256 digests; ValidateToken resolves a presented token to
// the authenticated Context that handlers read from the request.
package auth
