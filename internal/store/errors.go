package store

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrTicketNotFound  = errors.New("queue ticket not found")
	ErrGuestNotFound   = errors.New("guest user not found")
	ErrInvalidState    = errors.New("invalid ticket state")
	ErrAmbiguousTicket = errors.New("queue number matches more than one department")
	ErrConflict        = errors.New("conflicting queue write")
)

// ValidationError wraps ErrValidation with the offending detail.
func ValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
