// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package ticktimer

import (
	"context"
	"errors"
)

// errTickSourceClosed indicates the platform tick source failed while the
// driver was running.
var errTickSourceClosed = errors.New("ticktimer: tick source closed unexpectedly")

// tickSource delivers one channel receive per tick, at the configured
// frequency. The platform constructor is newTickSource.
type tickSource interface {
	C() <-chan struct{}
	Close() error
}

// Run programs the platform tick source to the configured frequency and
// fires Interrupt once per tick, blocking until ctx is done. This is the
// hosted equivalent of programming the hardware counter at boot and
// registering the periodic interrupt.
//
// Run returns ErrTimerRunning if the driver is already active, and ctx.Err()
// once ctx is done. The Timer may be driven again after Run returns.
func (x *Timer) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !x.running.CompareAndSwap(false, true) {
		return ErrTimerRunning
	}
	defer x.running.Store(false)

	src, err := newTickSource(x.frequency)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	x.logger.Info().
		Int64(`frequency`, x.frequency).
		Log(`timer driver started`)

	for {
		select {
		case <-ctx.Done():
			x.logger.Info().
				Int64(`ticks`, int64(x.Ticks())).
				Log(`timer driver stopped`)
			return ctx.Err()

		case _, ok := <-src.C():
			if !ok {
				return errTickSourceClosed
			}
			x.Interrupt()
		}
	}
}
