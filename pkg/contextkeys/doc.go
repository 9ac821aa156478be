// Package contextkeys defines the typed context keys shared between
// middleware and handlers, so neither imports the other to pass the
// authenticated caller or request ID along.
package contextkeys
