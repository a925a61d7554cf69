package quadrature

// Pin identifies a digital output line.
type Pin uint32

// GPIODriver is the abstract GPIO interface the encoder drives its output
// lines through. Target-specific code provides the implementation.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output.
	ConfigureOutput(pin Pin) error

	// SetPin drives the pin high (true) or low (false).
	SetPin(pin Pin, level bool) error
}

// PinPair is the two lines (A, B) carrying one axis's quadrature signal.
type PinPair struct {
	A, B Pin
}
