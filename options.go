// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package ioloop

import (
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// DefaultPollInterval bounds each kernel poll call, and so is the cadence at
// which timers and stop requests are observed when there is no I/O.
const DefaultPollInterval = 50 * time.Millisecond

// loopOptions holds configuration options for Backend creation.
type loopOptions struct {
	logger          *logiface.Logger[logiface.Event]
	clock           func() time.Time
	panicLimiter    *catrate.Limiter
	pollInterval    time.Duration
	panicLimiterSet bool
}

// Option configures a Backend instance.
type Option interface {
	applyLoop(*loopOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (o *optionImpl) applyLoop(opts *loopOptions) error {
	return o.applyLoopFunc(opts)
}

// WithLogger attaches a structured logger. A nil logger disables logging,
// which is the default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithPollInterval sets the upper bound on each kernel poll call.
// Defaults to DefaultPollInterval.
func WithPollInterval(interval time.Duration) Option {
	return &optionImpl{func(opts *loopOptions) error {
		if interval <= 0 {
			return ErrInvalidPollInterval
		}
		opts.pollInterval = interval
		return nil
	}}
}

// WithClock overrides the time source used to evaluate timers.
func WithClock(clock func() time.Time) Option {
	return &optionImpl{func(opts *loopOptions) error {
		if clock != nil {
			opts.clock = clock
		}
		return nil
	}}
}

// WithPanicRateLimits sets the rates (see catrate.NewLimiter) at which
// recovered callback panics are logged, per descriptor and event kind.
// Panics beyond the limit are still recovered and counted.
// A nil or empty map disables limiting.
func WithPanicRateLimits(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *loopOptions) (err error) {
		opts.panicLimiter, err = newPanicLimiter(rates)
		opts.panicLimiterSet = true
		return err
	}}
}

// resolveOptions applies Option instances to loopOptions.
func resolveOptions(opts []Option) (*loopOptions, error) {
	cfg := &loopOptions{
		clock:        time.Now,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	if !cfg.panicLimiterSet {
		cfg.panicLimiter, _ = newPanicLimiter(defaultPanicRates)
	}
	return cfg, nil
}
