package shared

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced by every ledger operation.
var (
	// ErrValidation indicates malformed or incomplete input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrBusinessRule indicates the request conflicts with ledger state.
	ErrBusinessRule = errors.New("business rule violated")
	// ErrUnauthorized indicates the principal may not run the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPersistence indicates a storage failure.
	ErrPersistence = errors.New("persistence failure")
)

// Business rule violations.
var (
	ErrOutOfStock     = fmt.Errorf("%w: out of stock", ErrBusinessRule)
	ErrExceedsBalance = fmt.Errorf("%w: payment exceeds balance", ErrBusinessRule)
	ErrOverQuantity   = fmt.Errorf("%w: quantity exceeds invoiced quantity", ErrBusinessRule)
	ErrInvalidState   = fmt.Errorf("%w: invalid state transition", ErrBusinessRule)
)

// OutOfStockError reports the first line that could not be fulfilled.
type OutOfStockError struct {
	ProductID int64
	VariantID int64
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	if e.VariantID != 0 {
		return fmt.Sprintf("out of stock: product %d variant %d requested %d available %d", e.ProductID, e.VariantID, e.Requested, e.Available)
	}
	return fmt.Sprintf("out of stock: product %d requested %d available %d", e.ProductID, e.Requested, e.Available)
}

// Unwrap lets errors.Is match ErrOutOfStock and ErrBusinessRule.
func (e *OutOfStockError) Unwrap() error { return ErrOutOfStock }

// PersistenceError wraps driver failures with the failing operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the taxonomy sentinel and the driver error.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// Invalid builds a validation error.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound builds a not-found error for an entity.
func NotFound(entity string, id any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, entity, id)
}

// InvalidState builds a state transition error.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// OverQuantity builds a credit note over-quantity error.
func OverQuantity(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOverQuantity, fmt.Sprintf(format, args...))
}

// ExceedsBalance builds an overpayment error.
func ExceedsBalance(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExceedsBalance, fmt.Sprintf(format, args...))
}

// Persistence wraps err unless it already belongs to the taxonomy.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClassified(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsClassified reports whether err already carries a taxonomy sentinel.
func IsClassified(err error) bool {
	for _, target := range []error{ErrValidation, ErrNotFound, ErrBusinessRule, ErrUnauthorized, ErrPersistence} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorCode returns a stable machine code for API consumers.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOutOfStock):
		return "OUT_OF_STOCK"
	case errors.Is(err, ErrExceedsBalance):
		return "EXCEEDS_BALANCE"
	case errors.Is(err, ErrOverQuantity):
		return "OVER_QUANTITY"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrBusinessRule):
		return "BUSINESS_RULE"
	case errors.Is(err, ErrValidation):
		return "INVALID"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}
