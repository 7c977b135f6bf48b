package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ikkim/udonggeum-storefront/internal/app/model"
)

var (
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrStockUnavailable     = errors.New("stock check unavailable")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidProduct       = errors.New("invalid product")
	ErrCartLineNotFound     = errors.New("cart line not found")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrPaymentNotConfirmed  = errors.New("payment not confirmed")
	ErrPaymentInitiation    = errors.New("payment initiation failed")
	ErrPersistence          = errors.New("cart persistence failed")
	ErrValidation           = errors.New("checkout validation failed")
	ErrStockConflict        = errors.New("cart has lines over available stock")
)

// InsufficientStockError rejects a mutation that would exceed the stock
// ceiling. Cause is set when the ceiling came from a failed stock check.
type InsufficientStockError struct {
	ProductID string
	Size      string
	Requested int
	Ceiling   int
	Cause     error
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s/%s: requested %d, available %d",
		e.ProductID, e.Size, e.Requested, e.Ceiling)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func (e *InsufficientStockError) Unwrap() error {
	return e.Cause
}

// StockCheckUnavailableError means the catalog could not answer a stock check.
type StockCheckUnavailableError struct {
	ProductID string
	Err       error
}

func (e *StockCheckUnavailableError) Error() string {
	return fmt.Sprintf("stock check for product %s unavailable: %v", e.ProductID, e.Err)
}

func (e *StockCheckUnavailableError) Is(target error) bool {
	return target == ErrStockUnavailable
}

func (e *StockCheckUnavailableError) Unwrap() error {
	return e.Err
}

// PaymentInitiationError is a failed provider call during submit. The cart is untouched.
type PaymentInitiationError struct {
	Method model.PaymentMethod
	Err    error
}

func (e *PaymentInitiationError) Error() string {
	return fmt.Sprintf("failed to initiate %s payment: %v", e.Method, e.Err)
}

func (e *PaymentInitiationError) Is(target error) bool {
	return target == ErrPaymentInitiation
}

func (e *PaymentInitiationError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed snapshot write. The in-memory change it
// accompanies has been applied.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist cart %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidationError maps each offending checkout field to a message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid checkout fields: %s", strings.Join(names, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StockConflictError lists lines whose quantity exceeds freshly refreshed stock.
type StockConflictError struct {
	Lines []model.CartLine
}

func (e *StockConflictError) Error() string {
	keys := make([]string, len(e.Lines))
	for i, line := range e.Lines {
		keys[i] = fmt.Sprintf("%s (%d > %d)", line.Key(), line.Quantity, line.MaxStock)
	}
	return fmt.Sprintf("stock changed for %s", strings.Join(keys, ", "))
}

func (e *StockConflictError) Is(target error) bool {
	return target == ErrStockConflict
}

// IsPersistenceOnly reports whether err only signals a failed snapshot write,
// meaning the operation itself took effect.
func IsPersistenceOnly(err error) bool {
	var persistErr *PersistenceError
	return errors.As(err, &persistErr)
}
