// Package clock provides cancellable scheduled tasks backed by real or simulated time.
package clock

import (
	"sync"
	"time"
)

// Timer is a handle to a scheduled task. Stop cancels any future firing and is
// safe to call more than once.
type Timer interface {
	Stop()
}

// Clock schedules one-shot and periodic tasks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
}

// Real schedules tasks on the runtime timers.
type Real struct{}

// NewReal returns a Clock backed by package time.
func NewReal() Real {
	return Real{}
}

// Now implements Clock.
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc implements Clock.
func (Real) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

// Every implements Clock. The first call happens after d.
func (Real) Every(d time.Duration, fn func()) Timer {
	t := &realTicker{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go t.loop(fn)
	return t
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Stop() {
	r.t.Stop()
}

type realTicker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (r *realTicker) loop(fn func()) {
	for {
		select {
		case <-r.done:
			return
		case <-r.ticker.C:
			select {
			case <-r.done:
				return
			default:
			}
			fn()
		}
	}
}

func (r *realTicker) Stop() {
	r.once.Do(func() {
		r.ticker.Stop()
		close(r.done)
	})
}
