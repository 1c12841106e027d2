package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an application error into the domain taxonomy.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindStateConflict Kind = "state_conflict"
	KindExternal      Kind = "external_dependency"
	KindPersistence   Kind = "persistence"
	KindInternal      Kind = "internal"
)

// Error represents an application error with an HTTP status mapping.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error.
func New(kind Kind, code int, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Validation flags bad caller input: empty cart, non-positive quantity,
// disallowed file type or size.
func Validation(message string) *Error {
	return New(KindValidation, http.StatusBadRequest, message, nil)
}

// NotFound flags a missing cart, order, address or prescription.
func NotFound(message string) *Error {
	return New(KindNotFound, http.StatusNotFound, message, nil)
}

// StateConflict flags an illegal status transition attempt. Most
// transition refusals are boolean outcomes, not errors; this is for
// callers that asked for something the state machine can never honor.
func StateConflict(message string) *Error {
	return New(KindStateConflict, http.StatusConflict, message, nil)
}

// External wraps a failure of the payment processor, file store or
// another outside collaborator.
func External(message string, err error) *Error {
	return New(KindExternal, http.StatusBadGateway, message, err)
}

// Persistence wraps a storage failure; the current operation is lost
// and no partial commit happened.
func Persistence(err error) *Error {
	return New(KindPersistence, http.StatusInternalServerError, "storage failure", err)
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Respond writes err as a JSON response with its mapped status code.
// Non-application errors become opaque 500s.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = New(KindInternal, http.StatusInternalServerError, "internal server error", err)
	}
	c.JSON(appErr.Code, gin.H{"kind": appErr.Kind, "error": appErr.Message})
}
