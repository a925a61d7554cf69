//go:build linux && !tinygo

package quadrature

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinWorker locks the calling goroutine to its OS thread and restricts
// that thread to the given CPU. cpu < 0 disables pinning.
func pinWorker(cpu int) error {
	if cpu < 0 {
		return nil
	}
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
