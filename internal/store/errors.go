package store

import (
	"errors"
	"fmt"
)

// Code categorizes failures surfaced by the ledger, settings and connection layers.
type Code string

const (
	// CodeConnectionUnavailable means no live database handle exists.
	CodeConnectionUnavailable Code = "CONNECTION_UNAVAILABLE"

	// CodeNotFound means a referenced batch, product, sale or setting does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeValidation means caller-supplied arguments violate a precondition.
	// Always detected before any mutation is attempted.
	CodeValidation Code = "VALIDATION_FAILED"

	// CodeInsufficientStock means a stock check failed inside a transaction.
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"

	// CodeStorage means the underlying SQL call failed.
	CodeStorage Code = "STORAGE_FAILURE"
)

// Sentinels for errors.Is matching. Any *Error with the same Code matches.
var (
	ErrConnectionUnavailable = &Error{Code: CodeConnectionUnavailable, Message: "database connection unavailable"}
	ErrNotFound              = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation            = &Error{Code: CodeValidation, Message: "invalid input"}
	ErrInsufficientStock     = &Error{Code: CodeInsufficientStock, Message: "insufficient stock"}
	ErrStorage               = &Error{Code: CodeStorage, Message: "storage failure"}
)

// Error is the typed error returned by every public operation.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NotFound creates a NOT_FOUND error for the given entity and identifier.
func NotFound(entity string, id any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %v not found", entity, id)}
}

// Validation creates a VALIDATION_FAILED error.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStock creates an INSUFFICIENT_STOCK error for a batch.
func InsufficientStock(batchID int64, available, requested int) *Error {
	return &Error{
		Code:    CodeInsufficientStock,
		Message: fmt.Sprintf("not enough stock for batch %d: available %d, requested %d", batchID, available, requested),
	}
}

// Unavailable wraps an open failure as CONNECTION_UNAVAILABLE.
func Unavailable(err error) *Error {
	return &Error{Code: CodeConnectionUnavailable, Message: "database connection unavailable", Err: err}
}

// Storage wraps err as STORAGE_FAILURE unless it already carries a Code.
// Returns nil if err is nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Code: CodeStorage, Message: op, Err: err}
}

// CodeOf extracts the Code from err. Unclassified errors report CodeStorage.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorage
}

// IsNotFound returns true if err is a NOT_FOUND error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidation returns true if err is a VALIDATION_FAILED error.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsInsufficientStock returns true if err is an INSUFFICIENT_STOCK error.
func IsInsufficientStock(err error) bool { return errors.Is(err, ErrInsufficientStock) }

// IsUnavailable returns true if err is a CONNECTION_UNAVAILABLE error.
func IsUnavailable(err error) bool { return errors.Is(err, ErrConnectionUnavailable) }

// UserMessage renders err for a human operator. The prefix tells the operator
// which corrective action applies: fix input, restock, or retry.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "storage error: " + err.Error()
	}
	switch e.Code {
	case CodeNotFound:
		return "not found: " + e.Message
	case CodeValidation:
		return "invalid input: " + e.Message
	case CodeInsufficientStock:
		return "insufficient stock: " + e.Message
	case CodeConnectionUnavailable:
		return "connection error: " + e.Message
	default:
		if e.Err != nil {
			return fmt.Sprintf("storage error: %s: %v", e.Message, e.Err)
		}
		return "storage error: " + e.Message
	}
}
