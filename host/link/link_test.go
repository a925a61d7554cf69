package link

import (
	"io"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stanley-fork/bluepad32/device"
	"github.com/stanley-fork/bluepad32/property"
	"github.com/stanley-fork/bluepad32/protocol"
	"github.com/stanley-fork/bluepad32/quadrature"
	"github.com/stanley-fork/bluepad32/storage"
	"github.com/stanley-fork/bluepad32/targets/sim"
)

// testBoard is a firmware instance wired to the far end of a pipe, so
// link tests exercise the real codec on both sides.
type testBoard struct {
	timers *sim.TimerDriver
	pins   *sim.PinRecorder
}

func newTestLink(t *testing.T) (*Link, *testBoard) {
	t.Helper()

	board := &testBoard{
		pins:   sim.NewPinRecorder(),
		timers: sim.NewTimerDriver(),
	}
	tbl := property.NewTable(storage.NewMem())
	q, err := quadrature.Init(quadrature.Config{
		GPIO:   board.pins,
		Timers: board.timers,
		Scale:  device.PropertyScaleStore{Table: tbl},
		CPU:    -1,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(q.Deinit)

	hostConn, devConn := net.Pipe()
	dev := device.New(q, devConn, nil)
	go func() { _ = dev.Run() }() // ends when the test closes the pipe

	l := New(hostConn, nil)
	t.Cleanup(func() { l.Close() })
	return l, board
}

// waitFor polls until cond holds or the deadline passes. The device
// handles frames on its own goroutine, so effects are asynchronous.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConfigureStartMotionPause(t *testing.T) {
	l, board := newTestLink(t)

	if err := l.ConfigurePort(0, 10, 11, 12, 13); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pins configured", func() bool {
		return board.pins.Configured(10) && board.pins.Configured(13)
	})

	if err := l.Start(0); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "timers counting", func() bool {
		return board.timers.Timer(0).IsCounting()
	})

	if err := l.SendMotion(0, 64, 0); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "motion applied", func() bool {
		return board.timers.Timer(0).Period() == 2
	})

	if err := l.Pause(0); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "timers paused", func() bool {
		return !board.timers.Timer(0).IsCounting()
	})
}

func TestScaleFactorRoundTrip(t *testing.T) {
	l, _ := newTestLink(t)

	if err := l.SetScaleFactor(2.5); err != nil {
		t.Fatal(err)
	}
	got, err := l.QueryScaleFactor(2 * time.Second)
	if err != nil {
		t.Fatalf("QueryScaleFactor failed: %v", err)
	}
	if got != 2.5 {
		t.Errorf("scale factor = %f, want 2.5", got)
	}
}

// quietSerialPort mimics a tarm/serial port with a read timeout on an
// idle board: the first read returns (0, io.EOF) with no data, and a
// written get_scale_factor is answered on a later read.
type quietSerialPort struct {
	timedOut atomic.Bool
	reads    chan []byte
	closed   chan struct{}
	once     sync.Once
}

func newQuietSerialPort() *quietSerialPort {
	return &quietSerialPort{
		reads:  make(chan []byte, 4),
		closed: make(chan struct{}),
	}
}

func (p *quietSerialPort) Read(b []byte) (int, error) {
	if p.timedOut.CompareAndSwap(false, true) {
		return 0, io.EOF // timed-out read on a quiet line
	}
	select {
	case data := <-p.reads:
		return copy(b, data), nil
	case <-p.closed:
		return 0, io.EOF
	}
}

func (p *quietSerialPort) Write(b []byte) (int, error) {
	payload := protocol.AppendUint(nil, protocol.RspScaleFactor)
	payload = protocol.AppendUint(payload, math.Float32bits(2.5))
	wire, err := protocol.EncodeFrame(0, payload)
	if err != nil {
		return 0, err
	}
	p.reads <- wire
	return len(b), nil
}

func (p *quietSerialPort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func TestQuerySurvivesReadTimeout(t *testing.T) {
	var pumpErr error
	l := New(newQuietSerialPort(), func(err error) { pumpErr = err })
	defer l.Close()

	// Let the pump hit the timed-out read before the query goes out.
	time.Sleep(10 * time.Millisecond)

	got, err := l.QueryScaleFactor(2 * time.Second)
	if err != nil {
		t.Fatalf("QueryScaleFactor after a read timeout: %v", err)
	}
	if got != 2.5 {
		t.Errorf("scale factor = %f, want 2.5", got)
	}
	if pumpErr != nil {
		t.Errorf("read timeout reported as pump failure: %v", pumpErr)
	}
}

func TestQueryScaleFactorTimeout(t *testing.T) {
	l := New(&silentRW{closed: make(chan struct{})}, nil)
	defer l.Close()

	if _, err := l.QueryScaleFactor(20 * time.Millisecond); err == nil {
		t.Error("query against a mute board did not time out")
	}
}

func TestSendAfterClose(t *testing.T) {
	l := New(&silentRW{closed: make(chan struct{})}, nil)
	l.Close()

	if err := l.Start(0); err != ErrClosed {
		t.Errorf("send after close = %v, want ErrClosed", err)
	}
}

// silentRW accepts writes and never produces data.
type silentRW struct {
	closed chan struct{}
}

func (s *silentRW) Read(p []byte) (int, error) {
	<-s.closed
	return 0, io.EOF
}

func (s *silentRW) Write(p []byte) (int, error) { return len(p), nil }

func (s *silentRW) Close() error {
	close(s.closed)
	return nil
}
