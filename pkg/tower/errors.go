package tower

import (
	"errors"
	"fmt"
)

// ErrInvalidName is returned when a channel is requested with an empty name.
var ErrInvalidName = errors.New("tower: channel name is required")

// ErrReservedName is returned when a channel name collides with one of the
// registry's control-plane operation names.
var ErrReservedName = errors.New("tower: channel name is reserved")

// ErrTypeMismatch is returned when an existing channel is requested with a
// payload type different from the one it was created with.
var ErrTypeMismatch = errors.New("tower: channel payload type mismatch")

// ErrUnknownChannel is returned by transports when a channel name does not
// exist in the registry. The registry itself never returns it.
var ErrUnknownChannel = errors.New("tower: unknown channel")

// NameError reports a failed channel lookup or creation.
type NameError struct {
	// Name is the requested channel name.
	Name string

	// Err is one of ErrInvalidName, ErrReservedName or ErrTypeMismatch.
	Err error

	// Detail optionally explains the failure.
	Detail string
}

// Error implements the error interface.
func (e *NameError) Error() string {
	msg := e.Err.Error()
	if e.Name != "" {
		msg = fmt.Sprintf("%s: %q", msg, e.Name)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap returns the underlying sentinel for errors.Is.
func (e *NameError) Unwrap() error {
	return e.Err
}

// LevelError reports an unparseable log level.
type LevelError struct {
	Input string
	Err   error
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("tower: invalid log level %q: %v", e.Input, e.Err)
}

func (e *LevelError) Unwrap() error {
	return e.Err
}

// SubscriberFault describes a subscriber that panicked while receiving a
// payload. The fault is recovered so the remaining subscribers still
// receive the payload.
type SubscriberFault struct {
	// Channel is the name of the channel being dispatched.
	Channel string

	// Subscription identifies the subscriber that panicked.
	Subscription Subscription

	// Replay is true when the panic happened while replaying the latest
	// payload to a new subscriber.
	Replay bool

	// Value is the value passed to panic.
	Value any

	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

// Error implements the error interface.
func (f *SubscriberFault) Error() string {
	return fmt.Sprintf("tower: subscriber %d on channel %q panicked: %v",
		f.Subscription.ID(), f.Channel, f.Value)
}

// Unwrap returns the panic value when it was an error.
func (f *SubscriberFault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}
