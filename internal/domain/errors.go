package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTotalsMismatch    = errors.New("order totals do not match cart contents")
	ErrInvalidTransition = errors.New("order status transition not allowed")
	ErrUnauthorized      = errors.New("invalid credentials")
	ErrForbidden         = errors.New("forbidden")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("changed concurrently")
)
