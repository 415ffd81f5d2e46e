// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package ticktimer

import (
	"github.com/joeycumines/logiface"
)

// DefaultFrequency is the tick frequency, in Hz, used when WithFrequency is
// not specified.
const DefaultFrequency = 100

// The supported frequency range. Below 19 Hz the tick is too coarse for the
// calibrated sub-tick path to be meaningful; above 1000 Hz the per-interrupt
// overhead dominates.
const (
	minFrequency = 19
	maxFrequency = 1000
)

// timerOptions holds configuration options for Timer creation.
type timerOptions struct {
	frequency int64
	scheduler Scheduler
	logger    *logiface.Logger[logiface.Event]
}

// --- Timer Options ---

// TimerOption configures a Timer instance.
type TimerOption interface {
	applyTimer(*timerOptions) error
}

// timerOptionImpl implements TimerOption.
type timerOptionImpl struct {
	applyTimerFunc func(*timerOptions) error
}

func (x *timerOptionImpl) applyTimer(opts *timerOptions) error {
	return x.applyTimerFunc(opts)
}

// WithFrequency sets the tick frequency, in Hz. Values outside [19, 1000]
// cause New to fail with ErrInvalidFrequency. The frequency is fixed for the
// lifetime of the Timer; there is no dynamic retuning.
func WithFrequency(hz int64) TimerOption {
	return &timerOptionImpl{func(opts *timerOptions) error {
		if hz < minFrequency || hz > maxFrequency {
			return ErrInvalidFrequency
		}
		opts.frequency = hz
		return nil
	}}
}

// WithScheduler sets the run-queue collaborator invoked from the interrupt
// handler. When unset (or nil), thread identity defaults to the calling
// goroutine's id, the tick hook is a no-op, and waking is carried entirely by
// the wait record.
func WithScheduler(scheduler Scheduler) TimerOption {
	return &timerOptionImpl{func(opts *timerOptions) error {
		opts.scheduler = scheduler
		return nil
	}}
}

// WithLogger sets the structured logger. A nil logger (the default) disables
// logging; logiface builders no-op on nil.
func WithLogger(logger *logiface.Logger[logiface.Event]) TimerOption {
	return &timerOptionImpl{func(opts *timerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolveTimerOptions applies TimerOption instances to timerOptions.
func resolveTimerOptions(opts []TimerOption) (*timerOptions, error) {
	cfg := &timerOptions{
		frequency: DefaultFrequency,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyTimer(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.scheduler == nil {
		cfg.scheduler = goroutineScheduler{}
	}
	return cfg, nil
}
