// Package errs defines the typed error kinds shared across the state
// manager: the per-app engine, the tenant registry, and the RPC façade
// all return errors wrapped with one of these kinds so that the façade
// can map them onto gRPC status codes without string-sniffing.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into the small set the RPC façade maps
// onto gRPC status codes.
type Kind int

const (
	// Unknown is the zero value; errors outside the typed set map here.
	Unknown Kind = iota
	// NotFound marks a missing app, checkpoint, or key.
	NotFound
	// DbError marks a KV-backend-internal failure.
	DbError
	// IoError marks a filesystem failure.
	IoError
	// ObjectStoreError marks a remote upload failure.
	ObjectStoreError
	// PreconditionFailed marks an etag mismatch.
	PreconditionFailed
	// PermissionDenied marks an admin-token mismatch.
	PermissionDenied
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case DbError:
		return "db_error"
	case IoError:
		return "io_error"
	case ObjectStoreError:
		return "object_store_error"
	case PreconditionFailed:
		return "precondition_failed"
	case PermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error is a typed error carrying a Kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err (which may be nil) with a Kind and the operation name
// that observed the failure.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFoundf builds a NotFound error with a formatted message.
func NotFoundf(op, format string, args ...any) error {
	return New(NotFound, op, fmt.Errorf(format, args...))
}

// PreconditionFailedf builds a PreconditionFailed error with a
// formatted message, used by the RPC façade on etag mismatch.
func PreconditionFailedf(op, format string, args ...any) error {
	return New(PreconditionFailed, op, fmt.Errorf(format, args...))
}

// PermissionDeniedf builds a PermissionDenied error with a formatted
// message, used by the RPC façade on admin-token mismatch.
func PermissionDeniedf(op, format string, args ...any) error {
	return New(PermissionDenied, op, fmt.Errorf(format, args...))
}

// KindOf extracts the Kind from err, walking the wrap chain. Errors not
// produced by this package classify as Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
