package quadrature

import "fmt"

// DebugWriter receives formatted log lines from the subsystem. It is a
// bare function so TinyGo targets can point it straight at a UART; host
// code typically adapts it onto slog.
type DebugWriter func(line string)

func (q *Quadrature) logf(format string, args ...any) {
	if q.log != nil {
		q.log(fmt.Sprintf("quadrature: "+format, args...))
	}
}

func (q *Quadrature) errf(format string, args ...any) {
	if q.log != nil {
		q.log(fmt.Sprintf("quadrature: error: "+format, args...))
	}
}
