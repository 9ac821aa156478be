// Package api assembles the HTTP application: every resource package
// registers its routes on one gorilla/mux router, the middleware chain
// wraps it (recovery, request ID, logging, metrics, rate limiting,
// auth), and a second listener serves health probes and metrics on a
// separate port so they never compete with API traffic.
package api
