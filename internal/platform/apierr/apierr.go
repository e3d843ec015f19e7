package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure for callers; the HTTP layer maps it to a status.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindStorage    Kind = "storage"
	KindStorageKey Kind = "storage_key"
	KindForbidden  Kind = "forbidden"
	KindInternal   Kind = "internal"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	op := strings.TrimSpace(e.Op)
	switch {
	case op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func NotFound(op, format string, args ...any) *Error {
	return New(KindNotFound, op, fmt.Errorf(format, args...))
}

func Validation(op, format string, args ...any) *Error {
	return New(KindValidation, op, fmt.Errorf(format, args...))
}

func Storage(op string, err error) *Error {
	return New(KindStorage, op, err)
}

func StorageKey(op, format string, args ...any) *Error {
	return New(KindStorageKey, op, fmt.Errorf(format, args...))
}

func Forbidden(op, format string, args ...any) *Error {
	return New(KindForbidden, op, fmt.Errorf(format, args...))
}

// Wrap tags err with kind unless err already carries one.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return New(kind, op, err)
}

// KindOf returns the kind of the outermost *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to the response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the same request unchanged.
func Retryable(err error) bool {
	return IsKind(err, KindStorage)
}
