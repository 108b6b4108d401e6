package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeInvalidLineItem     = "INVALID_LINE_ITEM"
	ErrCodeInvalidStatus       = "INVALID_STATUS"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeDuplicateIdentifier = "DUPLICATE_IDENTIFIER"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeReturnNotFound      = "RETURN_NOT_FOUND"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeOwnershipMismatch   = "ORDER_OWNERSHIP_MISMATCH"
	ErrCodeInvalidParameter    = "INVALID_PARAMETER"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// DomainError is a business rule violation that aborts a write.
// Field names the offending input using the JSON path of the record, e.g. "items[1].quantity".
type DomainError struct {
	Code    string
	Message string
	Field   string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrInvalidLineItem) matches every line item failure.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewInvalidLineItemError reports a bad value on the line at index.
func NewInvalidLineItemError(index int, field, reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidLineItem,
		Message: fmt.Sprintf("item %d: %s %s", index, field, reason),
		Field:   fmt.Sprintf("items[%d].%s", index, field),
	}
}

// NewInvalidStatusError reports a status value outside its enum.
func NewInvalidStatusError(field, value string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidStatus,
		Message: fmt.Sprintf("%q is not a valid %s", value, field),
		Field:   field,
	}
}

// NewInvalidTransitionError reports a status change that is not reachable from the current status.
func NewInvalidTransitionError(from, to string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot move from %s to %s", from, to),
		Field:   "status",
	}
}

// NewDuplicateIdentifierError reports a collision on a generated order or RMA number.
func NewDuplicateIdentifierError(value string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateIdentifier,
		Message: fmt.Sprintf("identifier %s already exists", value),
	}
}

// NewMissingFieldError reports a required request field that was not supplied.
func NewMissingFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("%s is required", field),
		Field:   field,
	}
}

// Common domain errors
var (
	ErrInvalidLineItem     = NewDomainError(ErrCodeInvalidLineItem, "Invalid line item")
	ErrInvalidStatus       = NewDomainError(ErrCodeInvalidStatus, "Invalid status value")
	ErrInvalidTransition   = NewDomainError(ErrCodeInvalidTransition, "Status transition is not allowed")
	ErrDuplicateIdentifier = NewDomainError(ErrCodeDuplicateIdentifier, "Identifier already exists")
	ErrMissingField        = NewDomainError(ErrCodeMissingField, "Required field is missing")
	ErrOrderNotFound       = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrReturnNotFound      = NewDomainError(ErrCodeReturnNotFound, "Return not found")
	ErrProductNotFound     = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrOwnershipMismatch   = NewDomainError(ErrCodeOwnershipMismatch, "Order belongs to a different customer")
)
