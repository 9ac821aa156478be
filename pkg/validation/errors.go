package validation

import "errors"

// Error is a user-input validation failure with a stable machine code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a validation error with a code and user-facing message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError extracts a validation error from an error chain.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	_, ok := AsError(err)
	return ok
}

// Common validation codes used across resources.
const (
	CodeMissingTenant  = "missing_tenant"
	CodeInvalidAmount  = "invalid_amount"
	CodeInvalidPeriod  = "invalid_period"
	CodeMissingEstate  = "missing_estate"
	CodeMissingName    = "missing_name"
	CodeMissingLabel   = "missing_label"
	CodeInvalidTaxRate = "invalid_tax_rate"
	CodeInvalidRole    = "invalid_role"
	CodeInvalidType    = "invalid_type"
	CodeInvalidDate    = "invalid_date"
	CodeDeleteFailed   = "delete_failed"
)
