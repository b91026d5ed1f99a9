package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/vango-dev/signaltower/pkg/tower"
)

// Category represents the type of error.
type Category string

const (
	CategoryChannel   Category = "channel"
	CategoryDispatch  Category = "dispatch"
	CategoryConfig    Category = "config"
	CategoryTransport Category = "transport"
	CategorySnapshot  Category = "snapshot"
	CategoryCLI       Category = "cli"
)

// TowerError is a structured error with a hint and documentation link.
type TowerError struct {
	// Code is a unique error identifier (e.g., "T001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *TowerError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *TowerError) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *TowerError) WithSuggestion(s string) *TowerError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *TowerError) WithDetail(d string) *TowerError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *TowerError) Wrap(err error) *TowerError {
	e.Wrapped = err
	return e
}

// New creates a TowerError from a registered error code.
func New(code string) *TowerError {
	template, ok := registry[code]
	if !ok {
		return &TowerError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &TowerError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates a new TowerError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *TowerError {
	return &TowerError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a TowerError.
func FromError(err error, code string) *TowerError {
	if err == nil {
		return nil
	}
	var te *TowerError
	if stderrors.As(err, &te) {
		return te
	}
	return New(code).Wrap(err)
}

// FromTower translates an error returned by the tower package into a
// TowerError carrying the matching code and hint. Unrecognized errors are
// wrapped with the generic CLI code.
func FromTower(err error) *TowerError {
	if err == nil {
		return nil
	}

	var (
		nameErr  *tower.NameError
		fault    *tower.SubscriberFault
		levelErr *tower.LevelError
	)
	switch {
	case stderrors.Is(err, tower.ErrInvalidName):
		return New("T001").Wrap(err).
			WithSuggestion("Give the channel a non-empty name")
	case stderrors.Is(err, tower.ErrReservedName):
		e := New("T002").Wrap(err)
		if stderrors.As(err, &nameErr) {
			e.WithSuggestion(fmt.Sprintf("Rename channel %q; it collides with a registry operation", nameErr.Name))
		}
		return e
	case stderrors.Is(err, tower.ErrTypeMismatch):
		return New("T003").Wrap(err).
			WithSuggestion("Declare the channel once with tower.NewKey and reuse the key")
	case stderrors.As(err, &fault):
		return New("T004").Wrap(err)
	case stderrors.Is(err, tower.ErrUnknownChannel):
		return New("T005").Wrap(err).
			WithSuggestion("List channels with 'tower channels'")
	case stderrors.As(err, &levelErr):
		return New("T006").Wrap(err).
			WithSuggestion("Use a number, or one of silent, dispatch, payload, reset")
	}
	return FromError(err, "T170")
}
