// Package gpio is the hardware abstraction the motion core uses to
// drive STEP/DIR/ENABLE pins. Platform code registers a concrete
// Driver; core code never imports "machine" directly.
package gpio

// Pin identifies a hardware GPIO pin number.
type Pin uint32

// Driver is the abstract GPIO interface motion code programs against.
// Platform-specific code (targets/rp2040) supplies the implementation.
type Driver interface {
	// ConfigureOutput configures a pin as a digital output.
	ConfigureOutput(pin Pin) error

	// SetPin drives the pin high (true) or low (false).
	SetPin(pin Pin, value bool) error

	// GetPin reads the current pin state.
	GetPin(pin Pin) (bool, error)
}

var driver Driver

// SetDriver is called once by platform-specific init code to register
// its Driver implementation.
func SetDriver(d Driver) {
	driver = d
}

// Must returns the configured driver or panics if none was registered.
// Motion code calls this rather than checking for nil on every access:
// a missing HAL registration is a startup-time programming error, not
// a runtime condition to recover from.
func Must() Driver {
	if driver == nil {
		panic("gpio: driver not configured")
	}
	return driver
}
