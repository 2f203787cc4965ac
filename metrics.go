package ioloop

import (
	"sync/atomic"
)

// Metrics is a snapshot of a backend's counters, see Backend.Metrics.
type Metrics struct {
	// Iterations is the number of poll calls that returned.
	Iterations uint64
	// ReadDispatches is the number of read callbacks invoked.
	ReadDispatches uint64
	// WriteDispatches is the number of write callbacks invoked.
	WriteDispatches uint64
	// ErrorDispatches is the number of error callback invocations.
	ErrorDispatches uint64
	// StaleSkips counts ready events dropped because their descriptor was
	// unregistered earlier in the same iteration.
	StaleSkips uint64
	// TimerFires is the number of timer callbacks invoked.
	TimerFires uint64
	// Panics counts recovered callback panics, including timers.
	Panics uint64
	// PollErrors counts fatal poll failures.
	PollErrors uint64
}

// metrics is updated by the loop goroutine and read by any goroutine.
type metrics struct {
	iterations atomic.Uint64
	reads      atomic.Uint64
	writes     atomic.Uint64
	errs       atomic.Uint64
	stale      atomic.Uint64
	timers     atomic.Uint64
	panics     atomic.Uint64
	pollErrors atomic.Uint64
}

func (m *metrics) snapshot() Metrics {
	return Metrics{
		Iterations:      m.iterations.Load(),
		ReadDispatches:  m.reads.Load(),
		WriteDispatches: m.writes.Load(),
		ErrorDispatches: m.errs.Load(),
		StaleSkips:      m.stale.Load(),
		TimerFires:      m.timers.Load(),
		Panics:          m.panics.Load(),
		PollErrors:      m.pollErrors.Load(),
	}
}
