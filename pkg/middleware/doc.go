// Package middleware provides the HTTP middleware in front of the API:
// bearer-token authentication that populates the request context from a
// validated session, and a redis-backed fixed-window rate limiter keyed
// by user when authenticated and by client IP otherwise.
package middleware
