//go:build rp2040

package main

import (
	"fmt"
	"image/color"
	"machine"
	"time"

	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"github.com/stanley-fork/bluepad32/quadrature"
)

var white = color.RGBA{255, 255, 255, 255}

// statusDisplay shows port state and the calibration scale factor on a
// 128x64 SSD1306 over I2C0.
type statusDisplay struct {
	dev ssd1306.Device
}

func newStatusDisplay() (*statusDisplay, error) {
	err := machine.I2C0.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz})
	if err != nil {
		return nil, err
	}
	// the delay is needed for display start from a cold reboot
	time.Sleep(time.Second)

	dev := ssd1306.NewI2C(machine.I2C0)
	dev.Configure(ssd1306.Config{
		Width:    128,
		Height:   64,
		Address:  0x3C,
		VccState: ssd1306.SWITCHCAPVCC,
	})
	dev.ClearDisplay()
	return &statusDisplay{dev: dev}, nil
}

func (d *statusDisplay) show(q *quadrature.Quadrature) {
	d.dev.ClearBuffer()
	tinyfont.WriteLine(&d.dev, &proggy.TinySZ8pt7b, 0, 10, "quad encoder", white)
	for p := 0; p < quadrature.NumPorts; p++ {
		state := "paused"
		if q.Running(p) {
			state = "running"
		}
		tinyfont.WriteLine(&d.dev, &proggy.TinySZ8pt7b, 0, int16(24+p*12),
			fmt.Sprintf("port %d: %s", p, state), white)
	}
	tinyfont.WriteLine(&d.dev, &proggy.TinySZ8pt7b, 0, 54,
		fmt.Sprintf("scale %.2f", q.ScaleFactor()), white)
	d.dev.Display()
}

// statusLoop refreshes the display a few times a second.
func statusLoop(d *statusDisplay, q *quadrature.Quadrature) {
	ticker := time.NewTicker(250 * time.Millisecond)
	for range ticker.C {
		d.show(q)
	}
}
