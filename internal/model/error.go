package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string            `json:"error"`
	Message       string            `json:"message"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeOutOfStock         = "OUT_OF_STOCK"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeOrderNotDeletable  = "ORDER_NOT_DELETABLE"
	ErrCodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodePersistOrder       = "ORDER_PERSIST_FAILED"
	ErrCodeMissingSession     = "MISSING_SESSION"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUpstreamFailure    = "UPSTREAM_FAILURE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeArchiveUnavailable = "ARCHIVE_UNAVAILABLE"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so errors built with a
// custom message still match the sentinel for their code.
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

// NewOutOfStockError names the product that cannot satisfy the requested quantity.
func NewOutOfStockError(productName string, available, requested int) *DomainError {
	if available <= 0 {
		return NewDomainError(ErrCodeOutOfStock, fmt.Sprintf("%s is out of stock", productName))
	}
	return NewDomainError(ErrCodeOutOfStock,
		fmt.Sprintf("%s has only %d left in stock (requested %d)", productName, available, requested))
}

// Common domain errors
var (
	ErrProductNotFound   = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrUserNotFound      = NewDomainError(ErrCodeUserNotFound, "User not found")
	ErrOrderNotFound     = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidQuantity   = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrOutOfStock        = NewDomainError(ErrCodeOutOfStock, "Product is out of stock")
	ErrEmptyCart         = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrOrderNotDeletable = NewDomainError(ErrCodeOrderNotDeletable, "Only pending orders can be deleted")
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidTransition, "Order status transition not allowed")
	ErrInvalidStatus     = NewDomainError(ErrCodeInvalidStatus, "Unknown order status")
	ErrPersistOrder      = NewDomainError(ErrCodePersistOrder, "Your order could not be placed, please try again")
	ErrMissingSession    = NewDomainError(ErrCodeMissingSession, "Session ID is required")
)

// ValidationError collects field-level problems found in user input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// Add records a problem for field. The first problem reported for a field wins.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// OrNil returns nil when no field problems were recorded.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
