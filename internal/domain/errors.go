package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrPermission  = errors.New("permission denied")
	ErrStaleState  = errors.New("stale state")
	ErrPersistence = errors.New("persistence error")
)

// Error carries the kind of failure, the operation that produced it and an
// optional cause.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Validation(op, msg string) error {
	return &Error{Kind: ErrValidation, Op: op, Msg: msg}
}

func NotFound(op, msg string) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: msg}
}

func Permission(op, msg string) error {
	return &Error{Kind: ErrPermission, Op: op, Msg: msg}
}

func Stale(op, msg string) error {
	return &Error{Kind: ErrStaleState, Op: op, Msg: msg}
}

// Persistence wraps a collaborator store failure. Errors that already carry a
// domain kind (a store reporting NotFound, say) are returned unchanged.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != nil {
		return err
	}
	return &Error{Kind: ErrPersistence, Op: op, Msg: "store call failed", Err: err}
}

// Kind returns the sentinel kind of err or nil when err has none.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrPermission, ErrStaleState, ErrPersistence} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Code is the wire code reported back to the originating connection.
func Code(err error) string {
	switch Kind(err) {
	case ErrValidation:
		return "validation"
	case ErrNotFound:
		return "not_found"
	case ErrPermission:
		return "permission"
	case ErrStaleState:
		return "stale_state"
	case ErrPersistence:
		return "persistence"
	default:
		return "internal"
	}
}
