//go:build rp2040

package main

import (
	"machine"
	"time"

	"github.com/stanley-fork/bluepad32/device"
	"github.com/stanley-fork/bluepad32/property"
	"github.com/stanley-fork/bluepad32/quadrature"
	"github.com/stanley-fork/bluepad32/storage"
)

// Default output pin assignment. Port 0 on the left header, port 1 on
// the right, each with horizontal then vertical line pairs.
var defaultPins = [quadrature.NumPorts][2]quadrature.PinPair{
	{{A: 2, B: 3}, {A: 4, B: 5}},
	{{A: 6, B: 7}, {A: 8, B: 9}},
}

func main() {
	// Give the USB CDC port time to enumerate before anything logs.
	time.Sleep(2 * time.Second)

	tbl := property.NewTable(storage.NewMem())
	q, err := quadrature.Init(quadrature.Config{
		GPIO:   rpGPIODriver{},
		Timers: tickTimerDriver{},
		Scale:  device.PropertyScaleStore{Table: tbl},
		Log:    func(s string) { println(s) },
		CPU:    -1,
	})
	if err != nil {
		for {
			println("quadrature init failed:", err.Error())
			time.Sleep(time.Second)
		}
	}

	for p := 0; p < quadrature.NumPorts; p++ {
		q.SetupPort(p, defaultPins[p][0], defaultPins[p][1])
	}

	if d, err := newStatusDisplay(); err == nil {
		go statusLoop(d, q)
	} else {
		println("display unavailable:", err.Error())
	}

	dev := device.New(q, serialPort{}, func(s string) { println(s) })
	for {
		// Run returns when the host side goes away; keep pumping so a
		// reconnect picks up where it left off.
		if err := dev.Run(); err != nil {
			println("link error:", err.Error())
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// serialPort adapts the USB CDC serial to io.ReadWriter.
type serialPort struct{}

func (serialPort) Read(p []byte) (int, error) {
	for machine.Serial.Buffered() == 0 {
		time.Sleep(time.Millisecond)
	}
	n := 0
	for n < len(p) && machine.Serial.Buffered() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}

func (serialPort) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}
