package ioloop

import (
	"context"
	"time"
)

// IOEvents is a bitmask of the event kinds a descriptor is interested in.
type IOEvents uint32

const (
	// EventRead indicates interest in the descriptor becoming readable.
	EventRead IOEvents = 1
	// EventWrite indicates interest in the descriptor becoming writable.
	EventWrite IOEvents = 2

	eventMask = EventRead | EventWrite
)

// String implements fmt.Stringer.
func (x IOEvents) String() string {
	switch x & eventMask {
	case EventRead:
		return "read"
	case EventWrite:
		return "write"
	case eventMask:
		return "read|write"
	default:
		return "none"
	}
}

// IOCallback receives the descriptor an event was reported for.
type IOCallback func(fd int)

// Backend is the registration and dispatch contract implemented by every
// multiplexing strategy. See the package documentation for the execution
// model, and [New] for construction.
type Backend interface {
	// Name returns the name the backend was selected by.
	Name() string

	// Register adds or updates interest in fd. Each kind set in events has
	// its callback replaced by cb, the callbacks for read and write being
	// otherwise independent. On error, nothing is recorded. Registering no
	// interest is a no-op.
	Register(fd int, events IOEvents, cb IOCallback) error

	// Unregister removes all interest in fd.
	//
	// The select backend treats an unknown fd as a no-op. The scalable
	// backends return the kernel's error, e.g. ENOENT.
	Unregister(fd int) error

	// SetErrCallback installs the single callback invoked for descriptors
	// reporting an error or hang-up. The latest call wins, and nil removes
	// it, in which case such conditions are dropped.
	SetErrCallback(cb IOCallback)

	// SetTimer installs or replaces the periodic timer identified by t,
	// first firing interval after installation. The interval is truncated
	// to whole seconds, with a minimum of one second.
	SetTimer(interval time.Duration, t Timer)

	// ClearTimer removes the timer identified by t, if any.
	ClearTimer(t Timer)

	// Run polls and dispatches until Stop is called, ctx is cancelled, the
	// kernel poll call fails (returning a *PollError), or (select only)
	// nothing remains registered.
	Run(ctx context.Context) error

	// Stop requests that Run return, after the current poll. It is safe to
	// call from any goroutine.
	Stop()

	// Metrics returns a snapshot of the backend's counters. It is safe to
	// call from any goroutine.
	Metrics() Metrics

	// Close releases any kernel resources held by the backend.
	Close() error
}
