package ioloop

import (
	"context"
	"sync/atomic"
	"time"
)

// Dispatch kinds, used for logging and rate limiting.
const (
	kindRead  = "read"
	kindWrite = "write"
	kindError = "error"
	kindTimer = "timer"
)

// loop holds the state shared by every backend: the descriptor maps, the
// error callback, the timer registry, and the run lifecycle.
//
// Everything except stopped and metrics is owned by the goroutine calling
// Run, and must not be touched concurrently.
type loop struct {
	opts    *loopOptions
	reads   map[int]IOCallback
	writes  map[int]IOCallback
	onErr   IOCallback
	timers  *timerRegistry
	name    string
	metrics metrics
	stopped atomic.Bool
	running bool
}

func (l *loop) setup(name string, opts *loopOptions) {
	l.opts = opts
	l.reads = make(map[int]IOCallback)
	l.writes = make(map[int]IOCallback)
	l.timers = newTimerRegistry()
	l.name = name
}

// Name returns the name the backend was selected by.
func (l *loop) Name() string {
	return l.name
}

// SetErrCallback installs the error callback, nil removing it.
func (l *loop) SetErrCallback(cb IOCallback) {
	l.onErr = cb
}

// SetTimer installs or replaces the periodic timer t.
func (l *loop) SetTimer(interval time.Duration, t Timer) {
	if t == nil {
		return
	}
	l.timers.set(l.now(), interval, t)
}

// ClearTimer removes the timer t.
func (l *loop) ClearTimer(t Timer) {
	if t == nil {
		return
	}
	l.timers.clear(t)
}

// Stop requests that Run return after the current poll.
func (l *loop) Stop() {
	l.stopped.Store(true)
}

// Metrics returns a snapshot of the counters.
func (l *loop) Metrics() Metrics {
	return l.metrics.snapshot()
}

func (l *loop) now() int64 {
	return l.opts.clock().Unix()
}

func (l *loop) pollTimeout() time.Duration {
	return l.opts.pollInterval
}

// validateRegister checks the arguments common to every Register implementation,
// returning the interest with unknown bits masked off.
func validateRegister(fd int, events IOEvents, cb IOCallback) (IOEvents, error) {
	if fd < 0 {
		return 0, ErrFDOutOfRange
	}
	events &= eventMask
	if events != 0 && cb == nil {
		return 0, ErrNilCallback
	}
	return events, nil
}

// record stores cb for each kind in events, replacing any existing callback.
func (l *loop) record(fd int, events IOEvents, cb IOCallback) {
	if events&EventRead != 0 {
		l.reads[fd] = cb
	}
	if events&EventWrite != 0 {
		l.writes[fd] = cb
	}
}

// forget removes fd from both maps, reporting if it was present in either.
func (l *loop) forget(fd int) bool {
	_, r := l.reads[fd]
	_, w := l.writes[fd]
	delete(l.reads, fd)
	delete(l.writes, fd)
	return r || w
}

func (l *loop) interest(fd int) (events IOEvents) {
	if _, ok := l.reads[fd]; ok {
		events |= EventRead
	}
	if _, ok := l.writes[fd]; ok {
		events |= EventWrite
	}
	return
}

// beginRun must be paired with endRun.
func (l *loop) beginRun() error {
	if l.running {
		return ErrLoopAlreadyRunning
	}
	l.running = true
	l.stopped.Store(false)
	l.logRunStart()
	return nil
}

func (l *loop) endRun(reason string, err error) error {
	l.running = false
	l.logRunStop(reason, err)
	return err
}

// interrupted is consulted once per iteration, after the poll returns.
func (l *loop) interrupted(ctx context.Context) (bool, error) {
	if l.stopped.Load() {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return true, err
	}
	return false, nil
}

// runTimers evaluates due timers, and must precede I/O dispatch.
func (l *loop) runTimers() {
	if l.timers.len() == 0 {
		return
	}
	l.timers.check(l.now(), l.fireTimer)
}

func (l *loop) fireTimer(t Timer) {
	defer l.recoverPanic(kindTimer, -1)
	l.metrics.timers.Add(1)
	t.OnTimer()
}

// dispatchRead invokes the read callback currently registered for fd, if any.
func (l *loop) dispatchRead(fd int) {
	cb, ok := l.reads[fd]
	if !ok {
		l.skipStale(kindRead, fd)
		return
	}
	l.metrics.reads.Add(1)
	l.invoke(kindRead, fd, cb)
}

// dispatchWrite invokes the write callback currently registered for fd, if any.
func (l *loop) dispatchWrite(fd int) {
	cb, ok := l.writes[fd]
	if !ok {
		l.skipStale(kindWrite, fd)
		return
	}
	l.metrics.writes.Add(1)
	l.invoke(kindWrite, fd, cb)
}

// dispatchError invokes the error callback for fd, if one is installed and
// registered reports that fd is still being tracked.
func (l *loop) dispatchError(fd int, registered bool) {
	if l.onErr == nil {
		return
	}
	if !registered {
		l.skipStale(kindError, fd)
		return
	}
	l.metrics.errs.Add(1)
	l.invoke(kindError, fd, l.onErr)
}

func (l *loop) skipStale(kind string, fd int) {
	l.metrics.stale.Add(1)
	l.logStale(kind, fd)
}

func (l *loop) invoke(kind string, fd int, cb IOCallback) {
	defer l.recoverPanic(kind, fd)
	cb(fd)
}

// recoverPanic keeps a single failing callback from terminating the loop.
func (l *loop) recoverPanic(kind string, fd int) {
	if r := recover(); r != nil {
		l.metrics.panics.Add(1)
		l.logPanic(kind, fd, r)
	}
}
