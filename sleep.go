package ticktimer

// SleepTicks suspends the calling thread for approximately n ticks: it
// resumes at the first interrupt whose tick is at or after the deadline
// computed now, never earlier. Non-positive n returns immediately.
//
// Calling from interrupt context is a fatal contract violation. There is no
// cancellation; the sleep runs to completion.
func (x *Timer) SleepTicks(n int64) {
	if n <= 0 {
		return
	}
	x.assertThreadContext(`sleep ticks`)

	rec := &waitRecord{wake: make(chan struct{})}

	// Deadline computation, record insertion, and the transition to blocked
	// must be one atomic unit with respect to the handler. The wake channel
	// carries the second half: a wake delivered before the receive below is
	// not lost.
	x.mask.Lock()
	rec.deadline = x.ticks + Tick(n)
	x.seq++
	rec.seq = x.seq
	rec.thread = x.scheduler.CurrentThread()
	x.queue.insert(rec)
	x.mask.Unlock()

	x.logger.Trace().
		Int64(`deadline`, int64(rec.deadline)).
		Int64(`ticks`, n).
		Log(`thread sleeping`)

	<-rec.wake
}

// SleepMillis suspends execution for approximately ms milliseconds.
func (x *Timer) SleepMillis(ms int64) {
	x.realTimeSleep(ms, 1000)
}

// SleepMicros suspends execution for approximately us microseconds.
func (x *Timer) SleepMicros(us int64) {
	x.realTimeSleep(us, 1000*1000)
}

// SleepNanos suspends execution for approximately ns nanoseconds.
func (x *Timer) SleepNanos(ns int64) {
	x.realTimeSleep(ns, 1000*1000*1000)
}

// realTimeSleep suspends execution for approximately num/denom seconds.
func (x *Timer) realTimeSleep(num, denom int64) {
	// Convert num/denom seconds into ticks, rounding down.
	//
	//	(num / denom) s
	//	---------------------- = num * frequency / denom ticks.
	//	1 s / frequency ticks
	ticks := num * x.frequency / denom

	x.assertThreadContext(`real time sleep`)

	if ticks > 0 {
		// At least one full tick: use SleepTicks, which yields the CPU.
		x.SleepTicks(ticks)
		return
	}

	// Sub-tick: busy-wait for more accurate timing. The numerator and
	// denominator are scaled down by 1000 to avoid intermediate overflow.
	if denom%1000 != 0 {
		panic(`ticktimer: real time sleep: unit denominator must be a multiple of 1000`)
	}
	busyWait(int64(x.loopsPerTick.Load()) * num / 1000 * x.frequency / (denom / 1000))
}
