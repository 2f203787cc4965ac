//go:build linux || darwin

package ioloop

import (
	"context"
	"maps"
	"os"
	"slices"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fdSetSize is FD_SETSIZE, the exclusive upper bound on select descriptors.
const fdSetSize = len(unix.FdSet{}.Bits) * int(unsafe.Sizeof(unix.FdSet{}.Bits[0])) * 8

const selectSupported = true

// selectBackend implements Backend using select(2).
//
// The descriptor lists are rebuilt on every change to registration, so
// polling only pays for copying them into the fd sets.
type selectBackend struct {
	loop
	rlist []int // read interest, sorted
	wlist []int // write interest, sorted
	elist []int // union of rlist and wlist, sorted

	// ready descriptors, captured before any callback runs
	readyR []int
	readyW []int
	readyE []int

	rset   unix.FdSet
	wset   unix.FdSet
	eset   unix.FdSet
	maxFD  int
	closed bool
}

func newSelectBackend(opts *loopOptions) (Backend, error) {
	b := &selectBackend{maxFD: -1}
	b.setup(BackendSelect, opts)
	return b, nil
}

// Register implements Backend.
func (b *selectBackend) Register(fd int, events IOEvents, cb IOCallback) error {
	if b.closed {
		return ErrBackendClosed
	}
	events, err := validateRegister(fd, events, cb)
	if err != nil {
		return err
	}
	if fd >= fdSetSize {
		return ErrFDOutOfRange
	}
	b.record(fd, events, cb)
	b.rebuild()
	return nil
}

// Unregister implements Backend. Unknown descriptors are a no-op.
func (b *selectBackend) Unregister(fd int) error {
	if b.closed {
		return ErrBackendClosed
	}
	if b.forget(fd) {
		b.rebuild()
	}
	return nil
}

// Close implements Backend. There are no kernel resources to release.
func (b *selectBackend) Close() error {
	b.closed = true
	return nil
}

func (b *selectBackend) rebuild() {
	b.rlist = slices.AppendSeq(b.rlist[:0], maps.Keys(b.reads))
	slices.Sort(b.rlist)
	b.wlist = slices.AppendSeq(b.wlist[:0], maps.Keys(b.writes))
	slices.Sort(b.wlist)

	b.elist = append(append(b.elist[:0], b.rlist...), b.wlist...)
	slices.Sort(b.elist)
	b.elist = slices.Compact(b.elist)

	b.maxFD = -1
	if n := len(b.elist); n > 0 {
		b.maxFD = b.elist[n-1]
	}
}

func (b *selectBackend) idle() bool {
	return len(b.rlist) == 0 && len(b.wlist) == 0
}

// Run implements Backend. It returns nil as soon as no descriptor has read
// or write interest, including before the first poll.
func (b *selectBackend) Run(ctx context.Context) error {
	if b.closed {
		return ErrBackendClosed
	}
	if err := b.beginRun(); err != nil {
		return err
	}

	for {
		if b.idle() {
			return b.endRun("idle", nil)
		}

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

		if n > 0 {
			b.dispatch()
		}
	}
}

func (b *selectBackend) poll() (int, error) {
	b.rset.Zero()
	b.wset.Zero()
	b.eset.Zero()
	for _, fd := range b.rlist {
		b.rset.Set(fd)
	}
	for _, fd := range b.wlist {
		b.wset.Set(fd)
	}
	for _, fd := range b.elist {
		b.eset.Set(fd)
	}

	tv := unix.NsecToTimeval(b.pollTimeout().Nanoseconds())
	n, err := unix.Select(b.maxFD+1, &b.rset, &b.wset, &b.eset, &tv)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, os.NewSyscallError("select", err)
	}
	return n, nil
}

// dispatch runs every ready read, then every ready write, then the error
// callback for each descriptor in the exceptional set.
func (b *selectBackend) dispatch() {
	b.readyR = collectReady(b.readyR[:0], b.rlist, &b.rset)
	b.readyW = collectReady(b.readyW[:0], b.wlist, &b.wset)
	b.readyE = collectReady(b.readyE[:0], b.elist, &b.eset)

	for _, fd := range b.readyR {
		b.dispatchRead(fd)
	}
	for _, fd := range b.readyW {
		b.dispatchWrite(fd)
	}
	for _, fd := range b.readyE {
		b.dispatchError(fd, b.interest(fd) != 0)
	}
}

func collectReady(dst, fds []int, set *unix.FdSet) []int {
	for _, fd := range fds {
		if set.IsSet(fd) {
			dst = append(dst, fd)
		}
	}
	return dst
}
