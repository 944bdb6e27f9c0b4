package etl

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures.
type Kind string

const (
	KindHarvestFailed         Kind = "HarvestFailed"
	KindSchemaInferenceFailed Kind = "SchemaInferenceFailed"
	KindProvisioningConflict  Kind = "ProvisioningConflict"
	KindProvisioningError     Kind = "ProvisioningError"
	KindLoadJobFailed         Kind = "LoadJobFailed"
	KindPollTimeout           Kind = "PollTimeout"
	KindStorageFailed         Kind = "StorageFailed"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrHarvestFailed         = &Error{Kind: KindHarvestFailed}
	ErrSchemaInferenceFailed = &Error{Kind: KindSchemaInferenceFailed}
	ErrProvisioningConflict  = &Error{Kind: KindProvisioningConflict}
	ErrProvisioningError     = &Error{Kind: KindProvisioningError}
	ErrLoadJobFailed         = &Error{Kind: KindLoadJobFailed}
	ErrPollTimeout           = &Error{Kind: KindPollTimeout}
	ErrStorageFailed         = &Error{Kind: KindStorageFailed}
)

// ErrAlreadyExists is returned by Warehouse implementations for existing resources.
var ErrAlreadyExists = errors.New("already exists")

// Error is a typed pipeline failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Kind)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can compare against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func errorf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or "" when err is not a pipeline error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
