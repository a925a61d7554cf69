// Package sim provides software stand-ins for the timer and GPIO
// peripherals: manually-ticked countdown timers and a pin recorder. Tests
// and host-side runs use these instead of hardware.
package sim

import (
	"sync"

	"github.com/stanley-fork/bluepad32/quadrature"
)

// TimerDriver hands out manually-ticked countdown timers. Timers are
// numbered in allocation order, which for quadrature.Init means
// port*NumAxes + axis.
type TimerDriver struct {
	mu     sync.Mutex
	timers []*CountdownTimer

	// FailNext makes the next allocation fail, for exercising the fatal
	// init path.
	FailNext error
}

// NewTimerDriver creates an empty driver.
func NewTimerDriver() *TimerDriver {
	return &TimerDriver{}
}

func (d *TimerDriver) NewCountdownTimer(initial uint32, callback func()) (quadrature.CountdownTimer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailNext != nil {
		err := d.FailNext
		d.FailNext = nil
		return nil, err
	}
	t := &CountdownTimer{
		period:    initial,
		remaining: initial,
		callback:  callback,
	}
	d.timers = append(d.timers, t)
	return t, nil
}

// Timer returns the i-th allocated timer.
func (d *TimerDriver) Timer(i int) *CountdownTimer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timers[i]
}

// Count returns how many timers have been allocated.
func (d *TimerDriver) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// TickAll advances every allocated timer by n hardware ticks.
func (d *TimerDriver) TickAll(n int) {
	d.mu.Lock()
	timers := make([]*CountdownTimer, len(d.timers))
	copy(timers, d.timers)
	d.mu.Unlock()
	for _, t := range timers {
		t.Tick(n)
	}
}

// CountdownTimer mimics an auto-reloading hardware countdown timer that
// only advances when Tick is called.
type CountdownTimer struct {
	mu        sync.Mutex
	period    uint32
	remaining uint32
	counting  bool
	closed    bool
	fired     int
	callback  func()
}

// SetPeriod writes the live countdown register, like reprogramming the
// hardware counter mid-count. The reload value changes with it.
func (t *CountdownTimer) SetPeriod(ticks uint32) {
	t.mu.Lock()
	t.period = ticks
	t.remaining = ticks
	t.mu.Unlock()
}

func (t *CountdownTimer) Start() {
	t.mu.Lock()
	if !t.closed {
		t.counting = true
	}
	t.mu.Unlock()
}

func (t *CountdownTimer) Pause() {
	t.mu.Lock()
	t.counting = false
	t.mu.Unlock()
}

func (t *CountdownTimer) IsCounting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counting
}

func (t *CountdownTimer) Close() {
	t.mu.Lock()
	t.counting = false
	t.closed = true
	t.mu.Unlock()
}

// Period returns the last programmed reload value.
func (t *CountdownTimer) Period() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// Fired returns how many times the countdown has reached zero.
func (t *CountdownTimer) Fired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Tick advances the timer by n hardware ticks. Each time the countdown
// reaches zero it reloads to the programmed period and invokes the
// callback, exactly like the hardware interrupt would.
func (t *CountdownTimer) Tick(n int) {
	for i := 0; i < n; i++ {
		t.mu.Lock()
		if !t.counting {
			t.mu.Unlock()
			return
		}
		if t.remaining > 0 {
			t.remaining--
		}
		fire := t.remaining == 0
		if fire {
			t.remaining = t.period
			t.fired++
		}
		cb := t.callback
		t.mu.Unlock()

		// The callback is invoked outside the lock, as a hardware
		// interrupt would be delivered outside the register file.
		if fire && cb != nil {
			cb()
		}
	}
}
