// Package ioloop provides a minimal, pluggable I/O event loop.
//
// A [Backend] multiplexes readiness notifications across registered file
// descriptors, dispatches level-triggered read, write and error events to
// callbacks, and fires periodic timers with whole-second resolution. It is
// the scheduling core a network service (e.g. a DNS proxy) builds its
// request/response pipeline on.
//
// # Backends
//
// Backends are selected by name, via [New]:
//   - "select": portable, select(2), limited to descriptors below FD_SETSIZE
//   - "epoll": scalable, Linux only
//   - "kqueue": scalable, Darwin only
//
// Unrecognised names yield [ErrUnknownBackend], never a default.
//
// The backends differ in two documented ways:
//   - select returns from [Backend.Run] immediately when nothing is
//     registered, while the scalable backends block until stopped
//   - select dispatches every applicable kind for a ready descriptor, while
//     the scalable backends dispatch at most one kind per kernel event, in
//     the priority order error, read, write
//
// # Execution Model
//
// A backend is single-threaded and cooperative. [Backend.Run] occupies the
// calling goroutine, and every callback runs synchronously on it, so
// callbacks must not block. Registration methods must only be called from
// the Run goroutine (typically from callbacks), or while the loop is not
// running. [Backend.Stop] and [Backend.Metrics] are the exceptions, and may
// be called from any goroutine.
//
// Each iteration evaluates due timers, then blocks in the kernel poll call
// for at most the poll interval (50ms by default), then checks for a stop
// request, then dispatches.
//
// # Usage
//
//	loop, err := ioloop.New("epoll", ioloop.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loop.Close()
//
//	if err := loop.Register(fd, ioloop.EventRead, func(fd int) {
//	    // read from fd, without blocking
//	}); err != nil {
//	    log.Fatal(err)
//	}
//
//	loop.SetTimer(time.Second, ioloop.TimerFunc(func() {
//	    // runs once per second, on the loop goroutine
//	}))
//
//	if err := loop.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Safety
//
// Always call [Backend.Unregister] before closing a file descriptor, as the
// loop cannot detect closure, and descriptor numbers are recycled.
package ioloop
