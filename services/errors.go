package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind je mašinski čitljiva kategorija greške koja se vraća klijentu.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindUnauthorized  ErrorKind = "unauthorized"
	KindForbidden     ErrorKind = "forbidden"
	KindNotFound      ErrorKind = "not_found"
	KindStateConflict ErrorKind = "state_conflict"
	KindDependency    ErrorKind = "dependency"
)

type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// StatusCode mapira kategoriju greške na HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindStateConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthorizedError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewStateConflictError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...)}
}

func NewDependencyError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindDependency, Message: fmt.Sprintf(format, args...)}
}

// AsAppError izvlači AppError iz lanca grešaka, ili pravi dependency grešku.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Kind: KindDependency, Message: "unexpected internal error"}
}
