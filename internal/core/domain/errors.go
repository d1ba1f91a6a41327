package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every failure the core can produce. The HTTP boundary maps
// each kind to exactly one status code.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// AuthReason explains why an authentication attempt failed.
type AuthReason string

const (
	ReasonMissingToken   AuthReason = "missing_token"
	ReasonInvalidToken   AuthReason = "invalid"
	ReasonExpiredToken   AuthReason = "expired"
	ReasonUserNotFound   AuthReason = "user_not_found"
	ReasonInactive       AuthReason = "inactive"
	ReasonBadCredentials AuthReason = "bad_credentials"
)

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the one error type crossing the core boundary.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input for Validation and Conflict failures.
	Field  string
	Fields []FieldError
	// Reason is set for Authentication failures.
	Reason AuthReason
	// Requirement is set for Authorization failures.
	Requirement *Requirement
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	if e.Requirement != nil {
		fmt.Fprintf(&b, " [%s]", e.Requirement)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels shared by services and storage adapters. Compare with errors.Is.
var (
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrRoleNotFound       = &Error{Kind: KindNotFound, Message: "role not found"}
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Message: "invalid credentials", Reason: ReasonBadCredentials}
	ErrTokenExpired       = &Error{Kind: KindAuthentication, Message: "token expired", Reason: ReasonExpiredToken}
	ErrTokenInvalid       = &Error{Kind: KindAuthentication, Message: "invalid token", Reason: ReasonInvalidToken}
)

// NewValidation builds a Validation failure. Fields are optional.
func NewValidation(msg string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// NewFieldValidation builds a Validation failure for a single field.
func NewFieldValidation(field, msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: msg,
		Field:   field,
		Fields:  []FieldError{{Field: field, Message: msg}},
	}
}

func NewAuthentication(reason AuthReason, msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg, Reason: reason}
}

// NewAuthorization records the unsatisfied requirement so it can be logged.
func NewAuthorization(req Requirement) *Error {
	return &Error{Kind: KindAuthorization, Message: "access forbidden", Requirement: &req}
}

func NewNotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// NewConflict reports a unique-key violation on field.
func NewConflict(field, msg string) *Error {
	return &Error{
		Kind:    KindConflict,
		Message: msg,
		Field:   field,
		Fields:  []FieldError{{Field: field, Message: msg}},
	}
}

func NewInternal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// AsError extracts the *Error carried by err, if any.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the kind of err. Unknown errors are Internal.
func KindOf(err error) Kind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return KindInternal
}
