// Package invoices implements estate invoices with derived totals.
//
// Subtotal, tax and total are always recomputed from the line items
// before persisting; the request types carry no total fields, so
// callers can never write them directly. Amounts round half away from
// zero to cents.
package invoices
