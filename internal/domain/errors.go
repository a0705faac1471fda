package domain

import (
	"errors"
	"fmt"
)

// Error categories surfaced to callers. Every error returned by the cart
// service wraps exactly one of these, so callers switch on errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
	ErrBusy            = errors.New("cart is busy, retry later")
	ErrStorage         = errors.New("storage unavailable")
)

func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// StorageFailure wraps err so that both ErrStorage and the underlying cause
// remain matchable with errors.Is.
func StorageFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
