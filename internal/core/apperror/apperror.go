// Package apperror defines the error kinds the engine reports to its callers.
// Adapter and driver errors never cross the engine boundary unconverted.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindStoreUnavailable Kind = "store_unavailable"
	KindNotFound         Kind = "not_found"
	KindInvalidArgument  Kind = "invalid_argument"
	KindConflict         Kind = "conflict"
	KindInternal         Kind = "internal"
)

// Error is a classified engine error. Err, when set, is the underlying cause
// and is kept for logging only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for any not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

var (
	ErrStoreUnavailable = &Error{Kind: KindStoreUnavailable}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrInternal         = &Error{Kind: KindInternal}
)

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Unavailable(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: fmt.Sprintf(format, args...), Err: cause}
}

func Internal(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
