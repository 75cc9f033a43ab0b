// Package apperr is the error taxonomy services hand to controllers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindUnauthenticated
	KindNotFound
	KindConversion
	KindConstraint
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindNotFound:
		return "not_found"
	case KindConversion:
		return "conversion"
	case KindConstraint:
		return "constraint"
	case KindRateLimited:
		return "rate_limited"
	}
	return "internal"
}

type Error struct {
	Kind  Kind
	Msg   string
	Field string // offending input or contract field, when known
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return e.Kind.String() + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.NotFound("")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

// Forbidden never names the record or tenant that was refused.
func Forbidden() *Error {
	return &Error{Kind: KindAuthorization, Msg: "access denied"}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Msg: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

func Conversion(dto, field, msg string) *Error {
	return &Error{Kind: KindConversion, Field: dto + "." + field, Msg: msg}
}

func Constraint(msg string, err error) *Error {
	return &Error{Kind: KindConstraint, Msg: msg, Err: err}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Msg: "too many requests"}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
