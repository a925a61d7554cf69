//go:build rp2040

package main

import (
	"machine"

	"github.com/stanley-fork/bluepad32/quadrature"
)

// rpGPIODriver drives the quadrature output lines through the RP2040
// GPIO block.
type rpGPIODriver struct{}

func (rpGPIODriver) ConfigureOutput(pin quadrature.Pin) error {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return nil
}

func (rpGPIODriver) SetPin(pin quadrature.Pin, level bool) error {
	machine.Pin(pin).Set(level)
	return nil
}
