package ioloop

import (
	"time"
)

// Timer is a periodic callback, installed via Backend.SetTimer.
//
// Timers are keyed by identity (interface equality), so implementations must
// be comparable, and are typically pointers. Installing the same Timer twice
// replaces the first installation.
type Timer interface {
	OnTimer()
}

// FuncTimer adapts a function to the Timer interface. Each *FuncTimer is a
// distinct identity, regardless of the wrapped function.
type FuncTimer struct {
	fn func()
}

// TimerFunc returns a new Timer that calls fn.
func TimerFunc(fn func()) *FuncTimer {
	return &FuncTimer{fn: fn}
}

// OnTimer implements Timer.
func (x *FuncTimer) OnTimer() {
	if x.fn != nil {
		x.fn()
	}
}

// timerEntry is the schedule of a single timer, in unix seconds.
type timerEntry struct {
	interval int64
	next     int64
}

type dueTimer struct {
	timer Timer
	entry *timerEntry
}

// timerRegistry maps timer identity to schedule. It is owned by the loop
// goroutine.
type timerRegistry struct {
	entries map[Timer]*timerEntry
	due     []dueTimer // reused between checks
}

func newTimerRegistry() *timerRegistry {
	return &timerRegistry{entries: make(map[Timer]*timerEntry)}
}

// intervalSeconds truncates to whole seconds, minimum one.
func intervalSeconds(interval time.Duration) int64 {
	if s := int64(interval / time.Second); s > 1 {
		return s
	}
	return 1
}

func (r *timerRegistry) set(now int64, interval time.Duration, t Timer) {
	s := intervalSeconds(interval)
	// always a new entry, so a stale snapshot won't fire the replacement
	r.entries[t] = &timerEntry{interval: s, next: now + s}
}

func (r *timerRegistry) clear(t Timer) {
	delete(r.entries, t)
}

func (r *timerRegistry) len() int {
	return len(r.entries)
}

// check fires every timer due at now, once each, advancing each by exactly
// one interval. Ticks missed entirely (next still not after now) are skipped,
// not caught up. Due timers are captured before any callback runs, and a
// timer replaced or cleared by an earlier callback is not fired.
func (r *timerRegistry) check(now int64, fire func(Timer)) {
	due := r.due[:0]
	for t, e := range r.entries {
		if e.next <= now {
			due = append(due, dueTimer{timer: t, entry: e})
		}
	}

	for i := range due {
		d := &due[i]
		if r.entries[d.timer] != d.entry {
			continue
		}
		e := d.entry
		e.next += e.interval
		if e.next <= now {
			e.next += ((now-e.next)/e.interval + 1) * e.interval
		}
		fire(d.timer)
	}

	clear(due)
	r.due = due[:0]
}
