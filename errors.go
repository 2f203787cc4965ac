package ioloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrUnknownBackend is returned by New for names that identify no backend.
	ErrUnknownBackend = errors.New("ioloop: unknown backend")

	// ErrBackendUnsupported is returned by New for backends that exist, but
	// not on this platform.
	ErrBackendUnsupported = errors.New("ioloop: backend unsupported on this platform")

	// ErrBackendClosed is returned when operations are attempted on a closed backend.
	ErrBackendClosed = errors.New("ioloop: backend closed")

	// ErrLoopAlreadyRunning is returned when Run is called from within Run.
	ErrLoopAlreadyRunning = errors.New("ioloop: loop is already running")

	// ErrFDOutOfRange is returned for descriptors the backend cannot track.
	ErrFDOutOfRange = errors.New("ioloop: fd out of range")

	// ErrNilCallback is returned by Register when events are requested without a callback.
	ErrNilCallback = errors.New("ioloop: nil callback")

	// ErrInvalidPollInterval is returned by WithPollInterval for non-positive values.
	ErrInvalidPollInterval = errors.New("ioloop: poll interval must be positive")
)

// PollError is returned by Run when the kernel poll call itself fails.
type PollError struct {
	Err     error
	Backend string
}

// Error implements the error interface.
func (e *PollError) Error() string {
	return fmt.Sprintf("ioloop: %s poll failed: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying syscall error for use with [errors.Is].
func (e *PollError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking callback.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("ioloop: callback panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
