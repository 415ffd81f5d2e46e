//go:build linux

package ticktimer

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// timerfdSource drives ticks from a CLOCK_MONOTONIC timerfd, the closest
// hosted analog to programming a hardware counter to a fixed frequency.
type timerfdSource struct {
	fd   int
	ch   chan struct{}
	done chan struct{}
}

func newTickSource(frequency int64) (tickSource, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, err
	}

	interval := unix.NsecToTimespec(int64(time.Second) / frequency)
	spec := unix.ItimerSpec{Interval: interval, Value: interval}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	x := &timerfdSource{
		fd:   fd,
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go x.read()

	return x, nil
}

func (x *timerfdSource) C() <-chan struct{} {
	return x.ch
}

func (x *timerfdSource) Close() error {
	close(x.done)
	return unix.Close(x.fd)
}

// read forwards timerfd expirations, one send per expiration, so ticks are
// delivered gap-free even when the consumer briefly falls behind.
func (x *timerfdSource) read() {
	pollFds := []unix.PollFd{{Fd: int32(x.fd), Events: unix.POLLIN}}
	var buf [8]byte

	for {
		select {
		case <-x.done:
			return
		default:
		}

		// Bounded timeout so Close is observed even if the fd never fires.
		n, err := unix.Poll(pollFds, 100)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			close(x.ch)
			return
		}
		if n == 0 {
			continue
		}

		n, err = unix.Read(x.fd, buf[:])
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil || n != 8 {
			close(x.ch)
			return
		}

		// Expiration count since the last read, native endianness.
		count := *(*uint64)(unsafe.Pointer(&buf[0]))
		for ; count > 0; count-- {
			select {
			case x.ch <- struct{}{}:
			case <-x.done:
				return
			}
		}
	}
}
