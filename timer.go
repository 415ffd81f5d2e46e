package ticktimer

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// Tick is an absolute count of timer interrupts. One tick is one firing of
// the periodic tick source, the system's unit of time.
type Tick int64

// ThreadRef identifies a thread to the scheduler. The timer treats it as
// opaque: it is captured when a thread sleeps, and handed back via
// Scheduler.Unblock when the thread's deadline arrives.
type ThreadRef any

// Scheduler is the run-queue collaborator consumed by the timer. All three
// methods may be called with the interrupt mask held, and must not call back
// into the Timer.
type Scheduler interface {
	// CurrentThread identifies the calling thread, for wait bookkeeping.
	CurrentThread() ThreadRef

	// OnTick is the time-slice accounting hook, invoked once per interrupt
	// with the new tick value, before any sleepers are woken.
	OnTick(now Tick)

	// Unblock hands a woken thread back to the ready state. It is invoked in
	// interrupt context, once per wait record, in deadline order.
	Unblock(ref ThreadRef)
}

// Timer is the time-keeping core: a monotonic tick counter, a
// deadline-ordered wait queue, and the busy-wait calibration constant, with a
// defined initialization step (New) and no implicit re-initialization.
//
// Instances must be initialized using the New factory.
type Timer struct {
	// Prevent copying
	_ [0]func()

	scheduler Scheduler
	logger    *logiface.Logger[logiface.Event]
	frequency int64

	// mask is the hosted interrupt mask: a critical section excluding the
	// handler. It guards ticks, seq, woken, and queue.
	mask  sync.Mutex
	ticks Tick
	seq   uint64
	woken uint64
	queue deadlineQueue

	// loopsPerTick is the calibration constant, written by Calibrate and read
	// by the sub-tick sleep path.
	loopsPerTick atomic.Uint64
	calibrated   atomic.Bool

	running    atomic.Bool
	handlerGID atomic.Uint64
}

// New initializes a Timer from the provided options. The zero configuration
// uses DefaultFrequency and a scheduler that identifies threads by goroutine.
func New(options ...TimerOption) (*Timer, error) {
	cfg, err := resolveTimerOptions(options)
	if err != nil {
		return nil, err
	}

	return &Timer{
		scheduler: cfg.scheduler,
		logger:    cfg.logger,
		frequency: cfg.frequency,
	}, nil
}

// Interrupt is the periodic entry point, fired once per tick by Run, or
// directly by cooperative ports and tests. It advances the tick counter by
// exactly one, invokes the scheduler's tick hook, then drains every wait
// record whose deadline has arrived, stopping at the first not-due record.
//
// Interrupt never fails; an internal invariant violation is a fatal panic,
// as interrupt context has no way to propagate an error.
func (x *Timer) Interrupt() {
	gid := getGoroutineID()

	x.mask.Lock()
	x.handlerGID.Store(gid)

	x.ticks++
	now := x.ticks

	x.scheduler.OnTick(now)

	due := x.queue.popWhileDue(now)
	x.woken += uint64(len(due))
	x.mask.Unlock()

	for _, rec := range due {
		x.scheduler.Unblock(rec.thread)
		close(rec.wake)
	}

	if len(due) != 0 {
		x.logger.Debug().
			Int64(`tick`, int64(now)).
			Int(`woken`, len(due)).
			Log(`woke sleeping threads`)
	}

	// CAS rather than a plain store: a driver replacement may already have
	// begun the next interrupt on another goroutine.
	x.handlerGID.CompareAndSwap(gid, 0)
}

// Ticks returns the number of ticks delivered so far, as an interrupt-safe
// snapshot: the read excludes a concurrent Interrupt, and the mask implies
// the ordering barrier.
func (x *Timer) Ticks() Tick {
	x.mask.Lock()
	t := x.ticks
	x.mask.Unlock()
	return t
}

// Elapsed returns the number of ticks since mark, which should be a value
// previously returned by Ticks.
func (x *Timer) Elapsed(mark Tick) Tick {
	return x.Ticks() - mark
}

// Frequency returns the configured tick frequency, in Hz.
func (x *Timer) Frequency() int64 {
	return x.frequency
}

// LoopsPerTick returns the busy-wait calibration constant, or zero if
// Calibrate has not run.
func (x *Timer) LoopsPerTick() uint64 {
	return x.loopsPerTick.Load()
}

// Running reports whether the periodic driver (Run) is active.
func (x *Timer) Running() bool {
	return x.running.Load()
}

// Stats is a point-in-time snapshot of timer activity.
type Stats struct {
	// Ticks is the number of timer interrupts delivered so far.
	Ticks Tick
	// Woken is the total number of sleeping threads woken.
	Woken uint64
	// Sleeping is the number of wait records currently queued.
	Sleeping int
}

// Stats returns a consistent snapshot of timer activity.
func (x *Timer) Stats() Stats {
	x.mask.Lock()
	s := Stats{
		Ticks:    x.ticks,
		Woken:    x.woken,
		Sleeping: x.queue.len(),
	}
	x.mask.Unlock()
	return s
}

// assertThreadContext panics if called from the interrupt handler; the hosted
// analog of asserting that interrupts are enabled before a blocking call.
func (x *Timer) assertThreadContext(op string) {
	if gid := x.handlerGID.Load(); gid != 0 && gid == getGoroutineID() {
		panic(`ticktimer: ` + op + `: called from interrupt context`)
	}
}

// goroutineScheduler is the default Scheduler: thread identity is the calling
// goroutine's id, the tick hook does nothing, and waking is carried entirely
// by the wait record itself.
type goroutineScheduler struct{}

func (goroutineScheduler) CurrentThread() ThreadRef { return getGoroutineID() }

func (goroutineScheduler) OnTick(Tick) {}

func (goroutineScheduler) Unblock(ThreadRef) {}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
