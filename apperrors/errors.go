// Package apperrors holds the error taxonomy shared by services and the
// HTTP boundary.
package apperrors

import (
	"errors"
	"fmt"
)

// Kinds. Every *Error unwraps to exactly one of these.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrEmptyPool       = errors.New("empty question pool")
)

// FieldError points at a single offending input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type Error struct {
	Kind    error
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

var (
	ErrAlreadySubmitted     = &Error{Kind: ErrConflict, Message: "quiz is completed, answers can not be uploaded again"}
	ErrIncompleteSubmission = &Error{Kind: ErrValidation, Message: "number of answers does not match number of questions"}
	ErrEmptyQuestionPool    = &Error{Kind: ErrEmptyPool, Message: "no questions available for the requested scope"}
	ErrNotQuizOwner         = &Error{Kind: ErrForbidden, Message: "you can not access another student's quiz"}
	ErrDuplicateChat        = &Error{Kind: ErrConflict, Message: "chat already exists"}
	ErrSelfChat             = &Error{Kind: ErrValidation, Message: "student and teacher must be different users"}
	ErrNotChatMember        = &Error{Kind: ErrForbidden, Message: "you are not a member of this chat"}
	ErrDeletedOnlyForbidden = &Error{Kind: ErrForbidden, Message: "only administrators can list deleted records"}
	ErrStaleSubscription    = &Error{Kind: ErrConflict, Message: "subscription was changed by someone else"}
)

func Validation(field, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: ErrValidation, Message: msg, Fields: []FieldError{{Field: field, Error: msg}}}
}

func NotFound(entity string, id interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("%s with id %v not found or deleted", entity, id)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

// FieldsOf returns the field details carried by err, if any.
func FieldsOf(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
