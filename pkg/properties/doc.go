// Package properties implements estate property CRUD plus a per-property
// rent summary (collected, outstanding, payment count) computed in SQL.
package properties
