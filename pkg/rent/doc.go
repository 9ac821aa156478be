// Package rent tracks rent payments across estate properties: CRUD,
// paid/unpaid toggling, period tracking, and a list endpoint filterable
// by estate, property, paid state, date range and tenant/notes search.
// An unfiltered list is scoped to estates the caller owns or
// collaborates on.
package rent
