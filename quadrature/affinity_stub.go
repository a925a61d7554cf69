//go:build !linux || tinygo

package quadrature

// pinWorker is a no-op on platforms without per-thread CPU affinity.
func pinWorker(cpu int) error {
	return nil
}
