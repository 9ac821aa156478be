// Package httputil provides the shared JSON request/response helpers.
//
// # Overview
//
// Every handler in the API speaks the same envelope: successful responses
// carry the payload under "data", failures carry a message under "error".
// This package owns that envelope so handlers never touch json.Encoder
// directly.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, payload)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteNoContent(w)
//	httputil.WriteValidationError(w, "Estate is required")
//	httputil.WriteNotFoundError(w, "Estate not found")
//	httputil.WriteForbidden(w, "Read-only access")
//
// # Request Parsing
//
//	var req CreateEstateRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // error response already written
//	}
//	estateID := httputil.ParseQueryString(r, "estateId", "")
//	paid, err := httputil.ParseQueryBoolPtr(r, "paid")
//
// # Related Packages
//
//   - pkg/validation: coded validation errors mapped onto error responses
package httputil
