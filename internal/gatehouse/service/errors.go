package service

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks failures to read or write the backing
	// store. Callers must treat it as "could not evaluate", never as a
	// denial.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrUnknownIdentity   = errors.New("identity is not enrolled")
	ErrInvalidDNI        = errors.New("dni is required")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrInvalidTerminalID = errors.New("terminal_id is required")
	ErrInvalidIdentity   = errors.New("invalid identity")
	ErrInvalidPass       = errors.New("invalid pass")
	ErrPassNotFound      = errors.New("pass not found")
	ErrInvalidQuery      = errors.New("invalid query")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func invalid(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
