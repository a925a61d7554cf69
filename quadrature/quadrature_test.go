package quadrature

import (
	"errors"
	"math"
	"testing"
	"time"
)

type testRig struct {
	q      *Quadrature
	pins   *simPinRecorder
	timers *simTimerDriver
	lines  *[]string
}

func newRig(t *testing.T, scale ScaleStore) *testRig {
	t.Helper()
	pins := newSimPinRecorder()
	timers := newSimTimerDriver()
	var lines []string
	q, err := Init(Config{
		GPIO:   pins,
		Timers: timers,
		Scale:  scale,
		Log:    func(s string) { lines = append(lines, s) },
		CPU:    -1,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(q.Deinit)
	q.SetupPort(0, PinPair{A: 10, B: 11}, PinPair{A: 12, B: 13})
	q.SetupPort(1, PinPair{A: 20, B: 21}, PinPair{A: 22, B: 23})
	return &testRig{q: q, pins: pins, timers: timers, lines: &lines}
}

// horizontal axis of port 0 is the first allocated timer.
func (r *testRig) hTimer() *simCountdownTimer { return r.timers.Timer(0) }
func (r *testRig) vTimer() *simCountdownTimer { return r.timers.Timer(1) }

func TestInitAllocatesAllTimersPaused(t *testing.T) {
	r := newRig(t, nil)
	if r.timers.Count() != NumPorts*NumAxes {
		t.Fatalf("allocated %d timers, want %d", r.timers.Count(), NumPorts*NumAxes)
	}
	for i := 0; i < r.timers.Count(); i++ {
		if r.timers.Timer(i).IsCounting() {
			t.Errorf("timer %d counting right after Init", i)
		}
	}
}

func TestInitTimerFailureIsFatal(t *testing.T) {
	timers := newSimTimerDriver()
	timers.FailNext = errors.New("no free timer group")
	_, err := Init(Config{GPIO: newSimPinRecorder(), Timers: timers, CPU: -1})
	if err == nil {
		t.Fatal("Init succeeded despite timer allocation failure")
	}
}

func TestPhaseSequenceForward(t *testing.T) {
	r := newRig(t, nil)
	e := r.q.encoders[0][AxisHorizontal]
	e.dir.Store(int32(directionPositive))
	e.pending.Store(8)

	want := []int32{1, 2, 3, 0, 1, 2, 3, 0}
	wantAB := [][2]bool{
		{true, false}, {true, true}, {false, true}, {false, false},
		{true, false}, {true, true}, {false, true}, {false, false},
	}
	for i := range want {
		r.q.step(e)
		if e.phase != want[i] {
			t.Fatalf("step %d: phase = %d, want %d", i, e.phase, want[i])
		}
		a, b := r.pins.Level(10), r.pins.Level(11)
		if a != wantAB[i][0] || b != wantAB[i][1] {
			t.Fatalf("step %d: pins = (%v,%v), want (%v,%v)", i, a, b, wantAB[i][0], wantAB[i][1])
		}
	}
}

func TestPhaseSequenceReverse(t *testing.T) {
	r := newRig(t, nil)
	e := r.q.encoders[0][AxisHorizontal]
	e.dir.Store(int32(directionNegative))
	e.pending.Store(8)

	want := []int32{3, 2, 1, 0, 3, 2, 1, 0}
	for i := range want {
		r.q.step(e)
		if e.phase != want[i] {
			t.Fatalf("step %d: phase = %d, want %d", i, e.phase, want[i])
		}
	}
}

func TestStepWithNothingPendingIsNoOp(t *testing.T) {
	r := newRig(t, nil)
	e := r.q.encoders[0][AxisHorizontal]

	r.q.step(e)
	if e.phase != 0 {
		t.Errorf("phase advanced with nothing pending: %d", e.phase)
	}
	if got := len(r.pins.Trace()); got != 0 {
		t.Errorf("pins written with nothing pending: %d writes", got)
	}
}

func TestUpdateComputesPeriodAndPending(t *testing.T) {
	// The concrete scenario: dx=64, scale=1.0, 128 subdivisions.
	r := newRig(t, nil)
	r.q.Update(0, 64, 0)

	e := r.q.encoders[0][AxisHorizontal]
	if got := e.pending.Load(); got != 64 {
		t.Errorf("pending = %d, want 64", got)
	}
	if got := r.hTimer().Period(); got != 2 {
		t.Errorf("period = %d, want round(128/64*1.0) = 2", got)
	}

	startPhase := e.phase
	for i := 0; i < 64; i++ {
		r.q.step(e)
	}
	if got := e.pending.Load(); got != 0 {
		t.Errorf("pending after 64 steps = %d, want 0", got)
	}
	// 64 mod 4 == 0: net phase movement is zero.
	if e.phase != startPhase {
		t.Errorf("phase after 64 steps = %d, want %d", e.phase, startPhase)
	}

	// Further steps are no-ops.
	r.q.step(e)
	if got := e.pending.Load(); got != 0 {
		t.Errorf("pending went negative: %d", got)
	}
}

func TestUpdateZeroDeltaIdles(t *testing.T) {
	r := newRig(t, nil)
	r.q.Update(0, 5, 0)
	e := r.q.encoders[0][AxisHorizontal]
	r.q.step(e)

	phase, pending, dir := e.phase, e.pending.Load(), e.dir.Load()
	r.q.Update(0, 0, 0)

	if e.phase != phase || e.pending.Load() != pending || e.dir.Load() != dir {
		t.Error("zero delta disturbed encoder state")
	}
	if got := r.hTimer().Period(); got != idlePeriod {
		t.Errorf("idle period = %d, want %d", got, idlePeriod)
	}
	if got := r.vTimer().Period(); got != idlePeriod {
		t.Errorf("vertical idle period = %d, want %d", got, idlePeriod)
	}
}

func TestUpdateSupersedesPending(t *testing.T) {
	r := newRig(t, nil)
	e := r.q.encoders[0][AxisHorizontal]

	r.q.Update(0, 100, 0)
	r.q.step(e)
	r.q.Update(0, 3, 0)

	if got := e.pending.Load(); got != 3 {
		t.Errorf("pending = %d, want 3 (new report supersedes old)", got)
	}
}

func TestVerticalDeltaInverted(t *testing.T) {
	r := newRig(t, nil)
	r.q.Update(0, 0, 7)

	e := r.q.encoders[0][AxisVertical]
	if direction(e.dir.Load()) != directionNegative {
		t.Error("positive dy should drive the vertical encoder negative")
	}
	if got := e.pending.Load(); got != 7 {
		t.Errorf("vertical pending = %d, want 7", got)
	}
}

func TestRateMonotonicity(t *testing.T) {
	r := newRig(t, nil)
	last := uint32(1 << 31)
	for delta := int32(1); delta <= 127; delta++ {
		r.q.Update(0, delta, 0)
		p := r.hTimer().Period()
		if p > last {
			t.Fatalf("period increased with |delta|: delta=%d period=%d last=%d", delta, p, last)
		}
		if p < minPeriod {
			t.Fatalf("period %d below minimum %d at delta=%d", p, minPeriod, delta)
		}
		last = p
	}
}

func TestScaleFactorSlowsMotion(t *testing.T) {
	r := newRig(t, nil)
	r.q.Update(0, 16, 0)
	base := r.hTimer().Period()

	r.q.SetScaleFactor(4.0)
	r.q.Update(0, 16, 0)
	if got := r.hTimer().Period(); got != base*4 {
		t.Errorf("period with scale 4.0 = %d, want %d", got, base*4)
	}
}

func TestPeriodClampedAtRegisterMax(t *testing.T) {
	// An extreme but valid scale factor must pin the period at the
	// slowest representable rate, not wrap around to a fast one.
	r := newRig(t, &fakeScaleStore{value: 1e30})
	r.q.Update(0, 1, 0)
	if got := r.hTimer().Period(); got != math.MaxUint32 {
		t.Errorf("period = %d, want %d", got, uint32(math.MaxUint32))
	}
}

func TestStartPauseIdempotent(t *testing.T) {
	r := newRig(t, nil)

	r.q.Start(0)
	if !r.hTimer().IsCounting() || !r.vTimer().IsCounting() {
		t.Fatal("both axis timers should count after Start")
	}
	r.q.Start(0)
	if !r.hTimer().IsCounting() {
		t.Error("second Start changed state")
	}

	r.q.Pause(0)
	if r.hTimer().IsCounting() || r.vTimer().IsCounting() {
		t.Fatal("both axis timers should stop after Pause")
	}
	r.q.Pause(0)
	if r.hTimer().IsCounting() {
		t.Error("second Pause changed state")
	}

	// The other port is untouched throughout.
	if r.timers.Timer(2).IsCounting() {
		t.Error("port 1 timers started by port 0 operations")
	}
}

func TestInvalidPortIsLoggedNoOp(t *testing.T) {
	r := newRig(t, nil)
	before := len(*r.lines)

	r.q.Start(NumPorts)
	r.q.Pause(-1)
	r.q.Update(99, 1, 1)
	r.q.SetupPort(5, PinPair{}, PinPair{})

	if got := len(*r.lines) - before; got != 4 {
		t.Errorf("expected 4 logged errors, got %d", got)
	}
	if r.hTimer().IsCounting() {
		t.Error("invalid port index started a timer")
	}
}

func TestWakeCoalescing(t *testing.T) {
	e := &encoderState{wake: make(chan struct{}, 1)}
	for i := 0; i < 5; i++ {
		e.notify()
	}
	// Five interrupt firings collapse into exactly one pending wake.
	select {
	case <-e.wake:
	default:
		t.Fatal("no wake pending after notify")
	}
	select {
	case <-e.wake:
		t.Fatal("wake signal queued more than one entry")
	default:
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	r := newRig(t, nil)
	r.q.Start(0)
	r.q.Update(0, 4, 0)

	e := r.q.encoders[0][AxisHorizontal]
	period := int(r.hTimer().Period())

	// Tick one period at a time so every interrupt is consumed before
	// the next fires; bursts would coalesce by design.
	for want := int32(3); want >= 0; want-- {
		r.hTimer().Tick(period)
		deadline := time.Now().Add(2 * time.Second)
		for e.pending.Load() != want {
			if time.Now().After(deadline) {
				t.Fatalf("worker never consumed step down to pending=%d", want)
			}
			time.Sleep(time.Millisecond)
		}
	}

	// Four forward steps: phase returns to 0 and the last pin levels
	// are the phase-0 Gray pair.
	trace := r.pins.Trace()
	if len(trace) != 8 {
		t.Fatalf("expected 8 pin writes (2 per step), got %d", len(trace))
	}
	if r.pins.Level(10) || r.pins.Level(11) {
		t.Errorf("final levels = (%v,%v), want (false,false)", r.pins.Level(10), r.pins.Level(11))
	}
}

func TestDeinitStopsWorkers(t *testing.T) {
	pins := newSimPinRecorder()
	timers := newSimTimerDriver()
	q, err := Init(Config{GPIO: pins, Timers: timers, CPU: -1})
	if err != nil {
		t.Fatal(err)
	}
	q.Deinit()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers still running after Deinit")
	}
	if timers.Timer(0).IsCounting() {
		t.Error("timer still counting after Deinit")
	}
}
