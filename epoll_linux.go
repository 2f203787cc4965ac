//go:build linux

package ioloop

import (
	"context"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const epollSupported = true

// epollBackend implements Backend using epoll(7), level-triggered.
type epollBackend struct {
	loop
	kernel   map[int]IOEvents // interest registered with epfd
	epfd     int
	eventBuf [256]unix.EpollEvent
	closed   bool
}

func newEpollBackend(opts *loopOptions) (Backend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	b := &epollBackend{
		kernel: make(map[int]IOEvents),
		epfd:   epfd,
	}
	b.setup(BackendEpoll, opts)
	return b, nil
}

// Register implements Backend. Error and hang-up are always monitored. A
// descriptor already known to epoll is modified to the union of its existing
// and requested interest. Registering no interest is a no-op.
func (b *epollBackend) Register(fd int, events IOEvents, cb IOCallback) error {
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

	prev, known := b.kernel[fd]
	want := prev | events
	op := unix.EPOLL_CTL_ADD
	if known {
		op = unix.EPOLL_CTL_MOD
	}
	ev := unix.EpollEvent{
		Events: eventsToEpoll(want),
		Fd:     int32(fd),
	}
	err = unix.EpollCtl(b.epfd, op, fd, &ev)
	if err == unix.ENOENT && op == unix.EPOLL_CTL_MOD {
		// closed without Unregister, and the number reused
		err = unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
	}
	if err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}

	b.kernel[fd] = want
	b.record(fd, events, cb)
	return nil
}

// Unregister implements Backend. Bookkeeping is removed before the kernel
// registration, and the kernel's error (ENOENT for unknown descriptors) is
// returned.
func (b *epollBackend) Unregister(fd int) error {
	if b.closed {
		return ErrBackendClosed
	}
	b.forget(fd)
	delete(b.kernel, fd)
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	return nil
}

// Close implements Backend.
func (b *epollBackend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	return unix.Close(b.epfd)
}

// Run implements Backend. Unlike select, it blocks even when nothing is
// registered, until stopped or ctx is done.
func (b *epollBackend) Run(ctx context.Context) error {
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

func (b *epollBackend) poll() (int, error) {
	n, err := unix.EpollWait(b.epfd, b.eventBuf[:], timeoutMillis(b.pollTimeout()))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, os.NewSyscallError("epoll_wait", err)
	}
	return n, nil
}

// dispatch performs at most one dispatch per event, in the priority order
// error, read, write.
func (b *epollBackend) dispatch(n int) {
	for i := 0; i < n; i++ {
		fd := int(b.eventBuf[i].Fd)
		flags := b.eventBuf[i].Events
		switch {
		case flags&(unix.EPOLLERR|unix.EPOLLHUP) != 0:
			_, ok := b.kernel[fd]
			b.dispatchError(fd, ok)
		case flags&unix.EPOLLIN != 0:
			b.dispatchRead(fd)
		case flags&unix.EPOLLOUT != 0:
			b.dispatchWrite(fd)
		}
	}
}

// timeoutMillis rounds up, as epoll_wait would otherwise not block at all
// for intervals under a millisecond.
func timeoutMillis(d time.Duration) int {
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

// eventsToEpoll converts IOEvents to epoll event flags.
func eventsToEpoll(events IOEvents) uint32 {
	epollEvents := uint32(unix.EPOLLERR | unix.EPOLLHUP)
	if events&EventRead != 0 {
		epollEvents |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		epollEvents |= unix.EPOLLOUT
	}
	return epollEvents
}
