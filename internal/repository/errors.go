package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrNullInput       = errors.New("null input")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIO              = errors.New("i/o failure")
	// ErrLocked reports a data directory already opened by another process.
	ErrLocked = errors.New("repository locked")
)

// Error kinds returned by Kind.
const (
	KindNotFound        = "not_found"
	KindAlreadyExists   = "already_exists"
	KindNullInput       = "null_input"
	KindInvalidArgument = "invalid_argument"
	KindIO              = "io"
	KindLocked          = "locked"
	KindInternal        = "internal"
)

// ErrorKind classifies err by the sentinel it wraps. Nil yields "".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrNullInput):
		return KindNullInput
	case errors.Is(err, ErrLocked):
		return KindLocked
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindInternal
	}
}

func wrap(marker error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", marker, fmt.Sprintf(format, args...))
}

func wrapIO(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, operation, err)
}

func errNullSource() error { return wrap(ErrNullInput, "source is nil") }

func errNullTarget() error { return wrap(ErrNullInput, "target is nil") }
