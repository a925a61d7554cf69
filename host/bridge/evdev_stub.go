//go:build !linux

package bridge

import "fmt"

// Device is a placeholder on platforms without evdev.
type Device struct{}

// OpenDevice fails on platforms without evdev support.
func OpenDevice(path string, grab bool) (*Device, error) {
	return nil, fmt.Errorf("bridge: input devices are only supported on linux")
}

func (d *Device) Name() string { return "" }

func (d *Device) Read(p []byte) (int, error) { return 0, fmt.Errorf("bridge: not supported") }

func (d *Device) Close() error { return nil }
