package ticktimer

import (
	"sort"
	"sync"
	"testing"
	"time"
)

func newTestTimer(t *testing.T, options ...TimerOption) *Timer {
	t.Helper()
	x, err := New(options...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return x
}

// advance fires n interrupts, one tick each.
func advance(x *Timer, n int) {
	for i := 0; i < n; i++ {
		x.Interrupt()
	}
}

// waitSleeping blocks until exactly n threads are queued.
func waitSleeping(t *testing.T, x *Timer, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for x.Stats().Sleeping != n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d sleeping threads, have %d", n, x.Stats().Sleeping)
		}
		time.Sleep(time.Millisecond)
	}
}

// sleeper blocks a new goroutine in SleepTicks, reporting the tick observed
// on resumption.
func sleeper(x *Timer, n int64) <-chan Tick {
	done := make(chan Tick, 1)
	go func() {
		x.SleepTicks(n)
		done <- x.Ticks()
	}()
	return done
}

func awaitWake(t *testing.T, done <-chan Tick) Tick {
	t.Helper()
	select {
	case tick := <-done:
		return tick
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a wake")
		return 0
	}
}

func assertStillSleeping(t *testing.T, done <-chan Tick) {
	t.Helper()
	select {
	case tick := <-done:
		t.Fatalf("thread woke early, at tick %d", tick)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSleepTicksNoOpOnNonPositive(t *testing.T) {
	x := newTestTimer(t)

	x.SleepTicks(0)
	x.SleepTicks(-5)

	if s := x.Stats(); s.Sleeping != 0 || s.Ticks != 0 {
		t.Errorf("expected no queued records and no ticks, got %+v", s)
	}
}

func TestSleepTicksDeadline(t *testing.T) {
	x := newTestTimer(t)

	// at tick 10, a thread sleeps for 5 ticks; its deadline is 15
	advance(x, 10)
	done := sleeper(x, 5)
	waitSleeping(t, x, 1)

	// at tick 14 it is still blocked
	advance(x, 4)
	assertStillSleeping(t, done)

	// the first interrupt at or after the deadline wakes it
	advance(x, 1)
	if tick := awaitWake(t, done); tick != 15 {
		t.Errorf("expected to resume at tick 15, got %d", tick)
	}
	if s := x.Stats(); s.Sleeping != 0 || s.Woken != 1 {
		t.Errorf("unexpected stats after wake: %+v", s)
	}
}

func TestSleepTicksOrdering(t *testing.T) {
	x := newTestTimer(t)

	// B sleeps to deadline 12, C to deadline 20, inserted after B
	b := sleeper(x, 12)
	waitSleeping(t, x, 1)
	c := sleeper(x, 20)
	waitSleeping(t, x, 2)

	// at tick 12 only B is popped; C remains queued
	advance(x, 12)
	if tick := awaitWake(t, b); tick != 12 {
		t.Errorf("expected B to resume at tick 12, got %d", tick)
	}
	assertStillSleeping(t, c)
	if s := x.Stats(); s.Sleeping != 1 {
		t.Errorf("expected C to remain queued, got %+v", s)
	}

	advance(x, 8)
	if tick := awaitWake(t, c); tick != 20 {
		t.Errorf("expected C to resume at tick 20, got %d", tick)
	}
}

// observingScheduler records the tick hook sequence and unblock order.
type observingScheduler struct {
	mu       sync.Mutex
	ticks    []Tick
	unblocks []ThreadRef
}

func (x *observingScheduler) CurrentThread() ThreadRef {
	return getGoroutineID()
}

func (x *observingScheduler) OnTick(now Tick) {
	x.mu.Lock()
	x.ticks = append(x.ticks, now)
	x.mu.Unlock()
}

func (x *observingScheduler) Unblock(ref ThreadRef) {
	x.mu.Lock()
	x.unblocks = append(x.unblocks, ref)
	x.mu.Unlock()
}

func TestSchedulerTickHook(t *testing.T) {
	sched := &observingScheduler{}
	x := newTestTimer(t, WithScheduler(sched))

	advance(x, 5)

	sched.mu.Lock()
	defer sched.mu.Unlock()
	if len(sched.ticks) != 5 {
		t.Fatalf("expected 5 tick hook invocations, got %d", len(sched.ticks))
	}
	for i, now := range sched.ticks {
		if now != Tick(i+1) {
			t.Errorf("hook %d: expected tick %d, got %d", i, i+1, now)
		}
	}
}

func TestUnblockOrderFollowsDeadlines(t *testing.T) {
	sched := &observingScheduler{}
	x := newTestTimer(t, WithScheduler(sched))

	deadlines := map[uint64]int64{} // goroutine id -> deadline
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, n := range []int64{7, 3, 5, 3, 9} {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			mu.Lock()
			deadlines[getGoroutineID()] = n
			mu.Unlock()
			x.SleepTicks(n)
		}(n)
		waitSleeping(t, x, i+1)
	}

	advance(x, 9)
	wg.Wait()

	sched.mu.Lock()
	defer sched.mu.Unlock()
	if len(sched.unblocks) != 5 {
		t.Fatalf("expected 5 unblocks, got %d", len(sched.unblocks))
	}
	woken := make([]int64, 0, len(sched.unblocks))
	for _, ref := range sched.unblocks {
		woken = append(woken, deadlines[ref.(uint64)])
	}
	if !sort.SliceIsSorted(woken, func(i, j int) bool { return woken[i] < woken[j] }) {
		t.Errorf("unblock order does not follow deadlines: %v", woken)
	}
}

func TestSleepMillisDelegatesToTicks(t *testing.T) {
	x := newTestTimer(t) // 100 Hz

	// 500 ms at 100 Hz is 50 ticks
	done := make(chan Tick, 1)
	go func() {
		x.SleepMillis(500)
		done <- x.Ticks()
	}()
	waitSleeping(t, x, 1)

	advance(x, 49)
	assertStillSleeping(t, done)

	advance(x, 1)
	if tick := awaitWake(t, done); tick != 50 {
		t.Errorf("expected to resume at tick 50, got %d", tick)
	}
}

func TestSleepMicrosSubTickBusyWaits(t *testing.T) {
	x := newTestTimer(t) // 100 Hz
	x.loopsPerTick.Store(1 << 10)

	// 1 us at 100 Hz rounds down to 0 ticks: must spin, never queue
	x.SleepMicros(1)
	x.SleepNanos(999)

	if s := x.Stats(); s.Sleeping != 0 || s.Woken != 0 {
		t.Errorf("sub-tick sleeps must not queue records, got %+v", s)
	}
}

func TestRealTimeSleepInvalidDenominatorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a non-multiple-of-1000 denominator")
		}
	}()

	x := newTestTimer(t)
	x.realTimeSleep(0, 500)
}

// reentrantScheduler attempts to sleep from the tick hook, which runs in
// interrupt context.
type reentrantScheduler struct {
	x *Timer
}

func (x *reentrantScheduler) CurrentThread() ThreadRef { return getGoroutineID() }

func (x *reentrantScheduler) OnTick(Tick) { x.x.SleepTicks(1) }

func (x *reentrantScheduler) Unblock(ThreadRef) {}

func TestSleepFromInterruptContextPanics(t *testing.T) {
	sched := &reentrantScheduler{}
	x := newTestTimer(t, WithScheduler(sched))
	sched.x = x

	defer func() {
		if recover() == nil {
			t.Error("expected a panic sleeping from interrupt context")
		}
	}()

	x.Interrupt()
}
