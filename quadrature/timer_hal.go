package quadrature

// CountdownTimer is an auto-reloading hardware countdown timer. The timer
// decrements once per hardware tick while counting; on reaching zero it
// reloads to the last value written with SetPeriod and invokes the
// callback registered at allocation.
type CountdownTimer interface {
	// SetPeriod writes ticks into the live countdown register. The write
	// may land mid-count; the value takes effect on the next reload
	// rather than atomically replacing the time remaining. Callers rely
	// on this being non-blocking.
	SetPeriod(ticks uint32)

	// Start begins (or resumes) counting.
	Start()

	// Pause stops counting without clearing the register.
	Pause()

	// IsCounting reports whether the timer is currently counting.
	IsCounting() bool

	// Close releases the timer. The callback will not fire afterwards.
	Close()
}

// TimerDriver allocates countdown timers. The callback runs in the
// driver's timing-critical dispatch context (an interrupt handler on
// hardware targets): it must not block, allocate, or do real work beyond
// delivering a wake signal.
type TimerDriver interface {
	NewCountdownTimer(initial uint32, callback func()) (CountdownTimer, error)
}
