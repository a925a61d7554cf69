package quadrature

import "math"

// ScaleStore persists the calibration scale factor. Implementations may
// block on storage I/O: the subsystem only calls them from Init and from
// SetScaleFactor, never from the interrupt/worker path.
type ScaleStore interface {
	LoadScaleFactor() (float32, error)
	SaveScaleFactor(f float32) error
}

// loadScaleFactor reads the persisted value once at Init, falling back to
// the default when storage is unavailable or holds garbage.
func (q *Quadrature) loadScaleFactor() float32 {
	if q.scales == nil {
		return defaultScaleFactor
	}
	f, err := q.scales.LoadScaleFactor()
	if err != nil {
		q.logf("scale factor unavailable, using default: %v", err)
		return defaultScaleFactor
	}
	if !(f > 0) || math.IsInf(float64(f), 1) {
		q.errf("persisted scale factor %f invalid, using default", f)
		return defaultScaleFactor
	}
	return f
}

// ScaleFactor returns the cached calibration multiplier. Bigger means
// slower movement. Safe to call from any goroutine.
func (q *Quadrature) ScaleFactor() float32 {
	return math.Float32frombits(q.scale.Load())
}

// SetScaleFactor updates the cached value first, so the very next Update
// sees it, then persists it. A persistence failure is logged and not
// rolled back: the runtime behavior change stands regardless.
func (q *Quadrature) SetScaleFactor(f float32) {
	if !(f > 0) || math.IsInf(float64(f), 1) {
		q.errf("SetScaleFactor: invalid value %f", f)
		return
	}
	q.scale.Store(math.Float32bits(f))

	if q.scales == nil {
		return
	}
	if err := q.scales.SaveScaleFactor(f); err != nil {
		q.errf("could not save scale factor: %v", err)
	}
}
