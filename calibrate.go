package ticktimer

import (
	"runtime"
)

// Calibrate computes the busy-wait calibration constant: the largest
// easily-computed loop count that reliably completes within one tick. It must
// run after the driver is started, and at most once in normal operation;
// rerunning is safe but wasteful, and yields the same or a nearby result.
//
// Calling while the driver is stopped, or from interrupt context, is a fatal
// contract violation, as the search blocks on tick boundaries.
func (x *Timer) Calibrate() {
	x.assertThreadContext(`calibrate`)
	if !x.running.Load() {
		panic(`ticktimer: calibrate: timer driver is not running`)
	}
	if x.calibrated.Load() {
		x.logger.Notice().Log(`recalibrating busy-wait loop`)
	}

	// Approximate the constant as the largest power of two still less than
	// one tick.
	loops := uint64(1) << 10
	for !x.tooManyLoops(loops << 1) {
		loops <<= 1
		if loops == 0 {
			panic(`ticktimer: calibrate: loop count overflow`)
		}
	}

	// Refine the next 8 bits.
	highBit := loops
	for testBit := highBit >> 1; testBit != highBit>>10; testBit >>= 1 {
		if !x.tooManyLoops(highBit | testBit) {
			loops |= testBit
		}
	}

	x.loopsPerTick.Store(loops)
	x.calibrated.Store(true)

	x.logger.Info().
		Uint64(`loops_per_tick`, loops).
		Uint64(`loops_per_s`, loops*uint64(x.frequency)).
		Log(`calibrated busy-wait loop`)
}

// tooManyLoops reports whether iterating the busy-wait loop the given number
// of times takes longer than one tick.
func (x *Timer) tooManyLoops(loops uint64) bool {
	// Wait for a tick boundary, so the measurement starts fresh. Yielding
	// here keeps the driver goroutine serviced; the measured section below
	// never yields.
	start := x.Ticks()
	for x.Ticks() == start {
		runtime.Gosched()
	}

	// Run the loop.
	start = x.Ticks()
	busyWait(int64(loops))

	// If the tick count changed, we iterated too long.
	return x.Ticks() != start
}

// busyWait iterates a simple loop the given number of times, for implementing
// brief sub-tick delays.
//
// Not inlined: code alignment can significantly affect timings, so inlining
// at different call sites would make the calibrated constant unreliable.
//
//go:noinline
func busyWait(loops int64) {
	for ; loops > 0; loops-- {
		barrier()
	}
}

// barrier keeps the busy-wait loop body from being eliminated or hoisted.
//
//go:noinline
func barrier() {}
