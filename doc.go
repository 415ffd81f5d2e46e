// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package ticktimer implements the time-keeping and deadline-wake subsystem
// of a preemptive single-core kernel, hosted on the Go runtime. A periodic
// tick source drives a monotonic tick counter, and goroutines standing in for
// kernel threads deschedule themselves until an absolute tick deadline,
// without busy-waiting, to be woken by the first tick at or after that
// deadline.
//
// # Architecture
//
// The core is a [Timer], an explicitly-constructed value holding the tick
// counter, the deadline-ordered wait queue, and the busy-wait calibration
// constant. [Timer.Interrupt] is the periodic entry point: it advances the
// counter by exactly one, invokes the [Scheduler] time-slice hook, then
// drains every wait record whose deadline has arrived, stopping at the first
// record still in the future. [Timer.Run] provides the steady-state driver,
// firing Interrupt at the configured frequency (a timerfd on Linux, a
// time.Ticker elsewhere); tests and cooperative ports may instead call
// Interrupt directly.
//
// Interrupt masking is modeled as a mutual-exclusion primitive guarding the
// tick counter and wait queue. Thread-context operations ([Timer.SleepTicks]
// and the wall-clock variants) take the mask for as little as possible:
// deadline computation, record insertion, and the transition to blocked form
// one atomic unit with respect to the handler.
//
// # Sleep Granularity
//
// Wake granularity is exactly one tick. A thread sleeping for n ticks never
// resumes before its deadline, and may resume up to slightly less than one
// tick after the requested wall time has notionally elapsed. Durations that
// round down to zero ticks are serviced by a calibrated busy-wait instead
// ([Timer.Calibrate] computes the largest loop count completing within a
// single tick); anything coarser yields the CPU.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Contract violations are
// fatal: sleeping or calibrating from within the interrupt handler panics, as
// does a sub-tick conversion with a unit divisor that is not a multiple of
// 1000. Non-positive sleep durations are no-ops, not errors. There is no
// cancellation: once a sleep is entered it runs to completion.
//
// # Usage
//
//	timer, err := ticktimer.New(
//	    ticktimer.WithFrequency(100),
//	)
//	if err != nil {
//	    // handle error
//	}
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	go timer.Run(ctx)
//
//	timer.SleepTicks(5)      // resumes at the 5th tick from now, or later
//	timer.SleepMillis(500)   // delegates to SleepTicks at 100 Hz
package ticktimer
