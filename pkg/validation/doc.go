// Package validation defines the coded validation error type services
// return and handlers map to 400 responses with a user-facing message.
package validation
