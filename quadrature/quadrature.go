// Package quadrature emulates the electrical behavior of a mechanical
// quadrature mouse encoder, so motion reports from a modern pointing
// device can drive the two-line Gray-code mouse port of a vintage
// computer.
//
// Based on SmallyMouse2 by Simon Inns
// https://github.com/simoninns/SmallyMouse2
//
// Each emulated port has two encoders (one per axis), each driven by its
// own auto-reloading countdown timer and a dedicated worker. Motion
// reports reprogram the timers; every timer interrupt wakes the worker,
// which applies exactly one phase step and drives the axis's output pins.
package quadrature

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

const (
	// NumPorts is the number of emulated mouse ports.
	NumPorts = 2

	// NumAxes is the number of encoders per port.
	NumAxes = 2

	// The timer base ticks every 80us (12.5 kHz). Reports arrive at
	// roughly 100/s, so a 10ms report window spans 128 ticks: one tick
	// per unit of full-scale delta.
	TicksPerSecond = 12500

	ticksPer80us      = 1
	reportWindowTicks = 128 * ticksPer80us

	// minPeriod is the fastest the timers are ever programmed.
	minPeriod = ticksPer80us

	// idlePeriod throttles an axis that reported no motion. Deliberately
	// not an upper clamp for computed periods: a tiny delta with a large
	// scale factor may legitimately exceed it.
	idlePeriod = TicksPerSecond * 60

	defaultScaleFactor = 1.0
)

// Axis selects one of a port's two encoders.
type Axis int

const (
	AxisHorizontal Axis = iota
	AxisVertical
)

type direction int32

const (
	directionNegative direction = iota
	directionPositive
)

// grayLevels maps a phase to its (A, B) output pair. Consecutive phases
// differ in exactly one bit.
var grayLevels = [4][2]bool{
	{false, false},
	{true, false},
	{true, true},
	{false, true},
}

// encoderState is the per-axis quadrature state.
//
// The worker goroutine is the sole consumer of phase; dir and pending are
// written by the report-delivery goroutine and read by the worker without
// locking. That is deliberate: reports arrive as a continuous stream and
// the latest value wins, so a lock on this path would only add a
// priority-inversion hazard to the interrupt-driven side.
type encoderState struct {
	axis    Axis
	dir     atomic.Int32
	pending atomic.Int32
	phase   int32
	pins    PinPair
	timer   CountdownTimer

	// wake is the single-slot coalescing signal from the timer's
	// interrupt callback to the worker. It is not a queue: any number of
	// interrupts before the worker runs collapse into one wake.
	wake chan struct{}
}

// notify runs in the timer driver's interrupt context. It must never
// block, so the send is dropped if a wake is already pending.
func (e *encoderState) notify() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Config carries the collaborators the subsystem needs.
type Config struct {
	// GPIO and Timers are the hardware capabilities. Both are required.
	GPIO   GPIODriver
	Timers TimerDriver

	// Scale is the calibration backend. Nil means the compiled-in
	// default scale factor with no persistence.
	Scale ScaleStore

	// Log receives diagnostics. Nil discards them.
	Log DebugWriter

	// CPU pins the per-axis workers to a processing core; -1 disables
	// pinning.
	CPU int
}

// Quadrature owns all per-port encoder state, timers and workers.
type Quadrature struct {
	gpio   GPIODriver
	timers TimerDriver
	scales ScaleStore
	log    DebugWriter

	// scale caches the calibration multiplier as float32 bits so the
	// rate computer can read it without locking.
	scale atomic.Uint32

	encoders [NumPorts][NumAxes]*encoderState
	started  [NumPorts]atomic.Bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// Init allocates every per-port/per-axis resource and starts the worker
// goroutines. All timers are left paused; ports become usable after
// SetupPort and Start. A timer allocation failure is unrecoverable and is
// returned as an error.
func Init(cfg Config) (*Quadrature, error) {
	if cfg.GPIO == nil || cfg.Timers == nil {
		return nil, errors.New("quadrature: GPIO and Timers drivers are required")
	}

	q := &Quadrature{
		gpio:   cfg.GPIO,
		timers: cfg.Timers,
		scales: cfg.Scale,
		log:    cfg.Log,
		stop:   make(chan struct{}),
	}
	q.scale.Store(math.Float32bits(q.loadScaleFactor()))

	for p := 0; p < NumPorts; p++ {
		for a := 0; a < NumAxes; a++ {
			e := &encoderState{
				axis: Axis(a),
				wake: make(chan struct{}, 1),
			}
			timer, err := cfg.Timers.NewCountdownTimer(idlePeriod, e.notify)
			if err != nil {
				q.closeTimers()
				close(q.stop)
				return nil, fmt.Errorf("quadrature: port %d axis %d timer: %w", p, a, err)
			}
			e.timer = timer
			q.encoders[p][a] = e

			q.wg.Add(1)
			go q.runWorker(e, cfg.CPU)
		}
	}

	return q, nil
}

// runWorker is the per-axis worker: it blocks until the timer interrupt
// signals it, applies one phase step, and loops.
func (q *Quadrature) runWorker(e *encoderState, cpu int) {
	defer q.wg.Done()
	if err := pinWorker(cpu); err != nil {
		q.errf("could not pin worker to cpu %d: %v", cpu, err)
	}
	for {
		select {
		case <-e.wake:
			q.step(e)
		case <-q.stop:
			return
		}
	}
}

// step applies exactly one quadrature phase transition and drives the
// axis's output pins. A call with nothing pending is a no-op.
func (q *Quadrature) step(e *encoderState) {
	if e.pending.Load() <= 0 {
		return
	}
	e.pending.Add(-1)

	if direction(e.dir.Load()) == directionNegative {
		e.phase--
		if e.phase < 0 {
			e.phase = 3
		}
	} else {
		e.phase++
		if e.phase > 3 {
			e.phase = 0
		}
	}

	var a, b bool
	if e.phase >= 0 && e.phase < 4 {
		a = grayLevels[e.phase][0]
		b = grayLevels[e.phase][1]
	} else {
		// Guard against a programming error: emit the safe level and
		// keep running.
		q.errf("invalid phase value: %d", e.phase)
	}

	if err := q.gpio.SetPin(e.pins.A, a); err != nil {
		q.errf("set pin %d: %v", e.pins.A, err)
	}
	if err := q.gpio.SetPin(e.pins.B, b); err != nil {
		q.errf("set pin %d: %v", e.pins.B, err)
	}
}

// updateAxis is the rate computer: it converts one axis's signed motion
// delta into direction, pending step count and the next timer period, and
// reprograms the live countdown register in place.
func (q *Quadrature) updateAxis(e *encoderState, delta int32) {
	if delta == 0 {
		// No motion: throttle the timer without disturbing the phase or
		// the steps still owed from the previous report.
		e.timer.SetPeriod(idlePeriod)
		return
	}

	abs := delta
	dir := directionPositive
	if delta < 0 {
		abs = -delta
		dir = directionNegative
	}

	// A new report supersedes the previous pending count. The phase is
	// not reset, so motion stays visually continuous.
	e.dir.Store(int32(dir))
	e.pending.Store(abs)

	// Spread |delta| steps across the 128-tick report window so the
	// cursor moves smoothly rather than in one burst. Bigger deltas tick
	// faster; the scale factor slows everything proportionally.
	ticks := (float64(reportWindowTicks) / float64(abs)) * float64(q.ScaleFactor())
	if ticks < minPeriod {
		ticks = minPeriod
	}
	// A huge scale factor can push the period past the 32-bit register;
	// pin it to the slowest representable rate instead of wrapping.
	period := math.Round(ticks)
	if period > math.MaxUint32 {
		period = math.MaxUint32
	}
	e.timer.SetPeriod(uint32(period))
}

// SetupPort binds output pins to a port's two encoders. Must be called
// before Start.
func (q *Quadrature) SetupPort(port int, h, v PinPair) {
	if !q.validPort(port, "SetupPort") {
		return
	}
	for _, pin := range []Pin{h.A, h.B, v.A, v.B} {
		if err := q.gpio.ConfigureOutput(pin); err != nil {
			q.errf("SetupPort: configure pin %d: %v", pin, err)
		}
	}
	q.encoders[port][AxisHorizontal].pins = h
	q.encoders[port][AxisVertical].pins = v
}

// Start begins counting on both of the port's axis timers. Starting an
// already-started port is a no-op.
func (q *Quadrature) Start(port int) {
	if !q.validPort(port, "Start") {
		return
	}
	if q.started[port].Swap(true) {
		return
	}
	for a := 0; a < NumAxes; a++ {
		q.encoders[port][a].timer.Start()
	}
}

// Pause stops both of the port's axis timers. Pausing an already-paused
// port is a no-op. Steps still pending are abandoned, not flushed.
func (q *Quadrature) Pause(port int) {
	if !q.validPort(port, "Pause") {
		return
	}
	if !q.started[port].Swap(false) {
		return
	}
	for a := 0; a < NumAxes; a++ {
		q.encoders[port][a].timer.Pause()
	}
}

// Running reports whether a port has been started.
func (q *Quadrature) Running(port int) bool {
	if port < 0 || port >= NumPorts {
		return false
	}
	return q.started[port].Load()
}

// Update delivers one motion report for a port. It is called from the
// report-delivery goroutine, concurrently with the timer/worker pipeline.
func (q *Quadrature) Update(port int, dx, dy int32) {
	if !q.validPort(port, "Update") {
		return
	}
	q.updateAxis(q.encoders[port][AxisHorizontal], dx)
	// Invert delta Y so the emulated mouse moves the right way on the
	// output lines. Empirical; SmallyMouse2 does the same.
	q.updateAxis(q.encoders[port][AxisVertical], -dy)
}

// Deinit tears down all timers and terminates all workers. The subsystem
// is unusable afterwards until re-initialized.
func (q *Quadrature) Deinit() {
	close(q.stop)
	q.wg.Wait()
	q.closeTimers()
}

func (q *Quadrature) closeTimers() {
	for p := 0; p < NumPorts; p++ {
		for a := 0; a < NumAxes; a++ {
			if e := q.encoders[p][a]; e != nil && e.timer != nil {
				e.timer.Close()
			}
		}
	}
}

func (q *Quadrature) validPort(port int, op string) bool {
	if port < 0 || port >= NumPorts {
		q.errf("%s: invalid port idx=%d", op, port)
		return false
	}
	return true
}
