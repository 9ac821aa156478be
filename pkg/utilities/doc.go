// Package utilities implements utility account CRUD with
// active/transferred/closed statuses.
package utilities
