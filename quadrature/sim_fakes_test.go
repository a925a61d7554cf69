package quadrature

import "sync"

// In-package copies of the targets/sim fakes. The internal tests need
// them here because targets/sim imports quadrature, and an internal test
// package cannot import a package that imports the package under test.
// targets/sim remains the shared fake set for the device and link tests,
// which sit outside the cycle.

// simPinEvent is one recorded level write.
type simPinEvent struct {
	Pin   Pin
	Level bool
}

// simPinRecorder implements GPIODriver and records every level written
// to every pin, so tests can assert on the exact Gray-code sequence that
// reached the output lines.
type simPinRecorder struct {
	mu         sync.Mutex
	configured map[Pin]bool
	levels     map[Pin]bool
	trace      []simPinEvent
}

// newSimPinRecorder creates an empty recorder.
func newSimPinRecorder() *simPinRecorder {
	return &simPinRecorder{
		configured: make(map[Pin]bool),
		levels:     make(map[Pin]bool),
	}
}

func (r *simPinRecorder) ConfigureOutput(pin Pin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configured[pin] = true
	return nil
}

func (r *simPinRecorder) SetPin(pin Pin, level bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[pin] = level
	r.trace = append(r.trace, simPinEvent{Pin: pin, Level: level})
	return nil
}

// Level returns the last level written to pin.
func (r *simPinRecorder) Level(pin Pin) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels[pin]
}

// Configured reports whether ConfigureOutput was called for pin.
func (r *simPinRecorder) Configured(pin Pin) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configured[pin]
}

// Trace returns a copy of every write in order.
func (r *simPinRecorder) Trace() []simPinEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]simPinEvent, len(r.trace))
	copy(out, r.trace)
	return out
}

// simTimerDriver hands out manually-ticked countdown timers. Timers are
// numbered in allocation order, which for Init means port*NumAxes + axis.
type simTimerDriver struct {
	mu     sync.Mutex
	timers []*simCountdownTimer

	// FailNext makes the next allocation fail, for exercising the fatal
	// init path.
	FailNext error
}

// newSimTimerDriver creates an empty driver.
func newSimTimerDriver() *simTimerDriver {
	return &simTimerDriver{}
}

func (d *simTimerDriver) NewCountdownTimer(initial uint32, callback func()) (CountdownTimer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailNext != nil {
		err := d.FailNext
		d.FailNext = nil
		return nil, err
	}
	t := &simCountdownTimer{
		period:    initial,
		remaining: initial,
		callback:  callback,
	}
	d.timers = append(d.timers, t)
	return t, nil
}

// Timer returns the i-th allocated timer.
func (d *simTimerDriver) Timer(i int) *simCountdownTimer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timers[i]
}

// Count returns how many timers have been allocated.
func (d *simTimerDriver) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// TickAll advances every allocated timer by n hardware ticks.
func (d *simTimerDriver) TickAll(n int) {
	d.mu.Lock()
	timers := make([]*simCountdownTimer, len(d.timers))
	copy(timers, d.timers)
	d.mu.Unlock()
	for _, t := range timers {
		t.Tick(n)
	}
}

// simCountdownTimer mimics an auto-reloading hardware countdown timer
// that only advances when Tick is called.
type simCountdownTimer struct {
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
func (t *simCountdownTimer) SetPeriod(ticks uint32) {
	t.mu.Lock()
	t.period = ticks
	t.remaining = ticks
	t.mu.Unlock()
}

func (t *simCountdownTimer) Start() {
	t.mu.Lock()
	if !t.closed {
		t.counting = true
	}
	t.mu.Unlock()
}

func (t *simCountdownTimer) Pause() {
	t.mu.Lock()
	t.counting = false
	t.mu.Unlock()
}

func (t *simCountdownTimer) IsCounting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counting
}

func (t *simCountdownTimer) Close() {
	t.mu.Lock()
	t.counting = false
	t.closed = true
	t.mu.Unlock()
}

// Period returns the last programmed reload value.
func (t *simCountdownTimer) Period() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// Fired returns how many times the countdown has reached zero.
func (t *simCountdownTimer) Fired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Tick advances the timer by n hardware ticks. Each time the countdown
// reaches zero it reloads to the programmed period and invokes the
// callback, exactly like the hardware interrupt would.
func (t *simCountdownTimer) Tick(n int) {
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
