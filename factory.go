package ioloop

import (
	"fmt"
)

// Backend names, as accepted by New.
const (
	// BackendSelect is the portable select(2) backend.
	BackendSelect = "select"
	// BackendEpoll is the scalable epoll(7) backend, Linux only.
	BackendEpoll = "epoll"
	// BackendKqueue is the scalable kqueue(2) backend, Darwin only.
	BackendKqueue = "kqueue"
)

// New constructs the backend identified by name.
//
// Unrecognised names fail with ErrUnknownBackend, and names recognised but
// not available on this platform fail with ErrBackendUnsupported. No backend
// is ever substituted for another.
func New(name string, opts ...Option) (Backend, error) {
	var newBackend func(*loopOptions) (Backend, error)
	switch name {
	case BackendSelect:
		newBackend = newSelectBackend
	case BackendEpoll:
		newBackend = newEpollBackend
	case BackendKqueue:
		newBackend = newKqueueBackend
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	return newBackend(cfg)
}

// Backends returns the names of the backends available on this platform.
func Backends() []string {
	var names []string
	if selectSupported {
		names = append(names, BackendSelect)
	}
	if epollSupported {
		names = append(names, BackendEpoll)
	}
	if kqueueSupported {
		names = append(names, BackendKqueue)
	}
	return names
}
