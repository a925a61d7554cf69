//go:build rp2040

package main

import (
	"sync/atomic"
	"time"

	"github.com/stanley-fork/bluepad32/quadrature"
)

// tickDuration is one rate-computer tick (80us).
const tickDuration = time.Second / quadrature.TicksPerSecond

// tickTimer is a countdown timer driven by a dedicated goroutine on
// top of the runtime's microsecond timer. A period change takes effect
// immediately: the running countdown restarts at the new value.
type tickTimer struct {
	callback func()
	period   atomic.Uint32
	counting atomic.Bool
	kick     chan struct{}
	stop     chan struct{}
}

func newTickTimer(initial uint32, callback func()) *tickTimer {
	t := &tickTimer{
		callback: callback,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	t.period.Store(initial)
	go t.run()
	return t
}

func (t *tickTimer) run() {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		if !t.counting.Load() {
			select {
			case <-t.kick:
				continue
			case <-t.stop:
				return
			}
		}
		timer.Reset(time.Duration(t.period.Load()) * tickDuration)
		select {
		case <-timer.C:
			if t.counting.Load() {
				t.callback()
			}
		case <-t.kick:
			if !timer.Stop() {
				<-timer.C
			}
		case <-t.stop:
			timer.Stop()
			return
		}
	}
}

func (t *tickTimer) nudge() {
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

func (t *tickTimer) SetPeriod(ticks uint32) {
	t.period.Store(ticks)
	t.nudge()
}

func (t *tickTimer) Start() {
	t.counting.Store(true)
	t.nudge()
}

func (t *tickTimer) Pause() {
	t.counting.Store(false)
	t.nudge()
}

func (t *tickTimer) IsCounting() bool {
	return t.counting.Load()
}

func (t *tickTimer) Close() {
	close(t.stop)
}

// tickTimerDriver allocates tickTimers for the quadrature core.
type tickTimerDriver struct{}

func (tickTimerDriver) NewCountdownTimer(initial uint32, callback func()) (quadrature.CountdownTimer, error) {
	return newTickTimer(initial, callback), nil
}
