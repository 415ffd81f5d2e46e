//go:build !linux

package ticktimer

import (
	"time"
)

// tickerSource drives ticks from a time.Ticker on platforms without a
// timerfd equivalent.
type tickerSource struct {
	ticker *time.Ticker
	ch     chan struct{}
	done   chan struct{}
}

func newTickSource(frequency int64) (tickSource, error) {
	x := &tickerSource{
		ticker: time.NewTicker(time.Second / time.Duration(frequency)),
		ch:     make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go x.forward()
	return x, nil
}

func (x *tickerSource) C() <-chan struct{} {
	return x.ch
}

func (x *tickerSource) Close() error {
	x.ticker.Stop()
	close(x.done)
	return nil
}

func (x *tickerSource) forward() {
	for {
		select {
		case <-x.done:
			return
		case <-x.ticker.C:
			select {
			case x.ch <- struct{}{}:
			case <-x.done:
				return
			}
		}
	}
}
