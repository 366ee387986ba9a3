package session

import (
	"errors"
	"net/http"
)

// Kind names a failure class. Callers branch on Kind; Status is the
// transport severity the HTTP layer should answer with.
type Kind string

const (
	KindInvalidCredentials Kind = "InvalidCredentials"
	KindMissingToken       Kind = "MissingToken"
	KindInvalidSignature   Kind = "InvalidSignature"
	KindTokenNotFound      Kind = "TokenNotFound"
	KindTokenExpired       Kind = "TokenExpired"
	KindTokenReuse         Kind = "TokenReuse"
	KindRevokeFailed       Kind = "RevokeFailed"
	KindEmailTaken         Kind = "EmailTaken"
	KindInvalidInput       Kind = "InvalidInput"
	KindPersistence        Kind = "PersistenceError"
	KindInternal           Kind = "InternalError"
)

// Error is the only error type returned by Manager. Message is safe to show
// to clients; Err holds the underlying cause for logs.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrTokenReuse)
// works regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sign-in answers 404 for both unknown email and wrong password.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Status: http.StatusNotFound, Message: "Invalid email or password"}
	ErrMissingToken       = &Error{Kind: KindMissingToken, Status: http.StatusBadRequest, Message: "No refresh token provided"}
	ErrInvalidSignature   = &Error{Kind: KindInvalidSignature, Status: http.StatusUnauthorized, Message: "Invalid refresh token"}
	ErrTokenNotFound      = &Error{Kind: KindTokenNotFound, Status: http.StatusUnauthorized, Message: "Refresh token not found"}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired, Status: http.StatusUnauthorized, Message: "Refresh token expired"}
	ErrTokenReuse         = &Error{Kind: KindTokenReuse, Status: http.StatusUnauthorized, Message: "Refresh token reuse detected"}
	ErrRevokeFailed       = &Error{Kind: KindRevokeFailed, Status: http.StatusBadRequest, Message: "Refresh token could not be revoked"}
	ErrEmailTaken         = &Error{Kind: KindEmailTaken, Status: http.StatusConflict, Message: "Email already registered"}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput, Status: http.StatusBadRequest, Message: "Invalid data"}
	ErrPersistence        = &Error{Kind: KindPersistence, Status: http.StatusInternalServerError, Message: "Internal Server Error"}
	ErrInternal           = &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "Internal Server Error"}
)

func wrap(base *Error, cause error) *Error {
	e := *base
	e.Err = cause
	return &e
}

func invalidInput(msg string) *Error {
	e := *ErrInvalidInput
	e.Message = msg
	return &e
}

// KindOf returns the Kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
