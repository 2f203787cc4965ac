package ioloop

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
)

// defaultPanicRates allows one panic log per second, and ten per minute, for
// each descriptor and event kind.
var defaultPanicRates = map[time.Duration]int{
	time.Second: 1,
	time.Minute: 10,
}

// panicCategory is the catrate category for recovered callback panics.
type panicCategory struct {
	kind string
	fd   int
}

// newPanicLimiter returns nil (unlimited) for empty rates.
func newPanicLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	if len(rates) == 0 {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			limiter = nil
			err = fmt.Errorf("ioloop: invalid panic rate limits: %v", r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}

func (l *loop) logRunStart() {
	l.opts.logger.Debug().
		Str("backend", l.name).
		Dur("poll_interval", l.opts.pollInterval).
		Int("reads", len(l.reads)).
		Int("writes", len(l.writes)).
		Log("run started")
}

func (l *loop) logRunStop(reason string, err error) {
	b := l.opts.logger.Debug()
	if err != nil {
		b = b.Err(err)
	}
	b.Str("backend", l.name).
		Str("reason", reason).
		Log("run stopped")
}

func (l *loop) logPollError(err error) {
	l.opts.logger.Err().
		Str("backend", l.name).
		Err(err).
		Log("poll failed")
}

func (l *loop) logPanic(kind string, fd int, value any) {
	if _, ok := l.opts.panicLimiter.Allow(panicCategory{kind: kind, fd: fd}); !ok {
		return
	}
	l.opts.logger.Err().
		Str("backend", l.name).
		Str("kind", kind).
		Int("fd", fd).
		Err(PanicError{Value: value}).
		Log("callback panicked")
}

func (l *loop) logStale(kind string, fd int) {
	l.opts.logger.Trace().
		Str("backend", l.name).
		Str("kind", kind).
		Int("fd", fd).
		Log("skipped dispatch to unregistered fd")
}
