package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	integration "github.com/CuracelDev/curacel-peoplev2-sub001/internal/integration/models"
)

// Category classifies a connector failure.
type Category string

const (
	// CategoryConfiguration: credentials or required settings are missing or
	// invalid. The call was never attempted.
	CategoryConfiguration Category = "configuration"
	// CategoryAuthentication: every credential candidate was rejected.
	CategoryAuthentication Category = "authentication"
	// CategoryNotFound: the identity does not exist in the target system.
	CategoryNotFound Category = "not_found"
	// CategoryTransient: network failure, 5xx, rate limit or timeout.
	CategoryTransient Category = "transient"
	// CategoryPartial: a grant sequence stopped after some steps were applied.
	CategoryPartial Category = "partial_application"
	// CategoryUnsupported: the provider has no concept of the operation.
	CategoryUnsupported Category = "unsupported"
)

// Retryable reports whether an operator retry can reasonably succeed.
func (c Category) Retryable() bool {
	return c == CategoryTransient || c == CategoryPartial
}

// Error is the failure carried inside connector results.
type Error struct {
	Category   Category
	Provider   integration.Provider
	Message    string
	Retryable  bool
	Underlying error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(strings.ToLower(string(e.Provider)))
		b.WriteString(": ")
	}
	b.WriteString(string(e.Category))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Underlying != nil {
		b.WriteString(": ")
		b.WriteString(e.Underlying.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError builds an Error whose Retryable flag follows the category.
func NewError(provider integration.Provider, category Category, message string) *Error {
	return &Error{
		Category:  category,
		Provider:  provider,
		Message:   message,
		Retryable: category.Retryable(),
	}
}

func Errorf(provider integration.Provider, category Category, format string, args ...any) *Error {
	return NewError(provider, category, fmt.Sprintf(format, args...))
}

// WrapError attaches err as the underlying cause.
func WrapError(provider integration.Provider, category Category, err error, message string) *Error {
	e := NewError(provider, category, message)
	e.Underlying = err
	return e
}

// NotInvited is the not_found error for an identity missing from system.
func NotInvited(provider integration.Provider, email, system string) *Error {
	return Errorf(provider, CategoryNotFound,
		"%s is not a member of %s; invite them there first, then retry", email, system)
}

// Unsupported is the non-fatal note returned by providers with no user concept.
func Unsupported(provider integration.Provider, operation string) *Error {
	return Errorf(provider, CategoryUnsupported, "%s has no concept of %s", strings.ToLower(string(provider)), operation)
}

// AsError converts any error into an *Error. Existing *Error values are
// returned as is, with Provider filled in when empty. HTTP status errors map
// through CategoryForStatus, and deadline or network errors are transient.
func AsError(provider integration.Provider, err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		if ce.Provider == "" {
			ce.Provider = provider
		}
		return ce
	}
	var se *StatusError
	if errors.As(err, &se) {
		return WrapError(provider, CategoryForStatus(se.StatusCode), err, se.summary())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(provider, CategoryTransient, err, "timed out")
	}
	if errors.Is(err, context.Canceled) {
		return WrapError(provider, CategoryTransient, err, "cancelled")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return WrapError(provider, CategoryTransient, err, "network error")
	}
	return WrapError(provider, CategoryTransient, err, "request failed")
}

// IsCategory reports whether err is an *Error of the given category.
func IsCategory(err error, category Category) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Category == category
}
