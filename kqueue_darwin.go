//go:build darwin

package ioloop

import (
	"context"
	"os"

	"golang.org/x/sys/unix"
)

const kqueueSupported = true

// kqueueBackend implements Backend using kqueue(2), level-triggered.
//
// Read and write interest are separate kernel filters, so a descriptor
// ready for both yields two events, each dispatched independently.
type kqueueBackend struct {
	loop
	kernel   map[int]IOEvents // filters registered with kq
	kq       int
	eventBuf [256]unix.Kevent_t
	closed   bool
}

func newKqueueBackend(opts *loopOptions) (Backend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	unix.CloseOnExec(kq)
	b := &kqueueBackend{
		kernel: make(map[int]IOEvents),
		kq:     kq,
	}
	b.setup(BackendKqueue, opts)
	return b, nil
}

// Register implements Backend. Every requested filter is (re)added, so a
// reused descriptor number is tracked again. Filters not previously
// registered are removed if the kernel rejects any of them. Registering no
// interest is a no-op.
func (b *kqueueBackend) Register(fd int, events IOEvents, cb IOCallback) error {
	if b.closed {
		return ErrBackendClosed
	}
	events, err := validateRegister(fd, events, cb)
	if err != nil {
		return err
	}
	if events == 0 {
		return nil
	}

	prev := b.kernel[fd]
	if _, err := unix.Kevent(b.kq, eventsToKevents(fd, events, unix.EV_ADD|unix.EV_ENABLE), nil, nil); err != nil {
		if added := events &^ prev; added != 0 {
			_, _ = unix.Kevent(b.kq, eventsToKevents(fd, added, unix.EV_DELETE), nil, nil)
		}
		return os.NewSyscallError("kevent", err)
	}

	b.kernel[fd] = prev | events
	b.record(fd, events, cb)
	return nil
}

// Unregister implements Backend. Unknown descriptors fail with ENOENT, as
// the kernel would for a filter that was never added.
func (b *kqueueBackend) Unregister(fd int) error {
	if b.closed {
		return ErrBackendClosed
	}
	prev, known := b.kernel[fd]
	b.forget(fd)
	delete(b.kernel, fd)
	if !known || prev == 0 {
		return os.NewSyscallError("kevent", unix.ENOENT)
	}
	if _, err := unix.Kevent(b.kq, eventsToKevents(fd, prev, unix.EV_DELETE), nil, nil); err != nil {
		return os.NewSyscallError("kevent", err)
	}
	return nil
}

// Close implements Backend.
func (b *kqueueBackend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return unix.Close(b.kq)
}

// Run implements Backend. Unlike select, it blocks even when nothing is
// registered, until stopped or ctx is done.
func (b *kqueueBackend) Run(ctx context.Context) error {
	if b.closed {
		return ErrBackendClosed
	}
	if err := b.beginRun(); err != nil {
		return err
	}

	for {
		b.runTimers()

		n, err := b.poll()
		if err != nil {
			b.metrics.pollErrors.Add(1)
			b.logPollError(err)
			return b.endRun("poll failed", &PollError{Backend: b.name, Err: err})
		}
		b.metrics.iterations.Add(1)

		if stop, err := b.interrupted(ctx); stop {
			return b.endRun("interrupted", err)
		}

		b.dispatch(n)
	}
}

func (b *kqueueBackend) poll() (int, error) {
	ts := unix.NsecToTimespec(b.pollTimeout().Nanoseconds())
	n, err := unix.Kevent(b.kq, nil, b.eventBuf[:], &ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, os.NewSyscallError("kevent", err)
	}
	return n, nil
}

// dispatch performs at most one dispatch per event, in the priority order
// error, read, write.
func (b *kqueueBackend) dispatch(n int) {
	for i := 0; i < n; i++ {
		ev := &b.eventBuf[i]
		fd := int(ev.Ident)
		switch {
		case ev.Flags&(unix.EV_ERROR|unix.EV_EOF) != 0:
			_, ok := b.kernel[fd]
			b.dispatchError(fd, ok)
		case ev.Filter == unix.EVFILT_READ:
			b.dispatchRead(fd)
		case ev.Filter == unix.EVFILT_WRITE:
			b.dispatchWrite(fd)
		}
	}
}

// eventsToKevents converts IOEvents to kevent changes.
func eventsToKevents(fd int, events IOEvents, flags int) []unix.Kevent_t {
	var kevents []unix.Kevent_t
	if events&EventRead != 0 {
		var kev unix.Kevent_t
		unix.SetKevent(&kev, fd, unix.EVFILT_READ, flags)
		kevents = append(kevents, kev)
	}
	if events&EventWrite != 0 {
		var kev unix.Kevent_t
		unix.SetKevent(&kev, fd, unix.EVFILT_WRITE, flags)
		kevents = append(kevents, kev)
	}
	return kevents
}
