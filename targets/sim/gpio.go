package sim

import (
	"sync"

	"github.com/stanley-fork/bluepad32/quadrature"
)

// PinEvent is one recorded level write.
type PinEvent struct {
	Pin   quadrature.Pin
	Level bool
}

// PinRecorder implements quadrature.GPIODriver and records every level
// written to every pin, so tests can assert on the exact Gray-code
// sequence that reached the output lines.
type PinRecorder struct {
	mu         sync.Mutex
	configured map[quadrature.Pin]bool
	levels     map[quadrature.Pin]bool
	trace      []PinEvent
}

// NewPinRecorder creates an empty recorder.
func NewPinRecorder() *PinRecorder {
	return &PinRecorder{
		configured: make(map[quadrature.Pin]bool),
		levels:     make(map[quadrature.Pin]bool),
	}
}

func (r *PinRecorder) ConfigureOutput(pin quadrature.Pin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configured[pin] = true
	return nil
}

func (r *PinRecorder) SetPin(pin quadrature.Pin, level bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[pin] = level
	r.trace = append(r.trace, PinEvent{Pin: pin, Level: level})
	return nil
}

// Level returns the last level written to pin.
func (r *PinRecorder) Level(pin quadrature.Pin) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels[pin]
}

// Configured reports whether ConfigureOutput was called for pin.
func (r *PinRecorder) Configured(pin quadrature.Pin) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.configured[pin]
}

// Trace returns a copy of every write in order.
func (r *PinRecorder) Trace() []PinEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PinEvent, len(r.trace))
	copy(out, r.trace)
	return out
}
