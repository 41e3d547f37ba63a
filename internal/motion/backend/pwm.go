package backend

import (
	"railpulse/internal/motion/gpio"
	"railpulse/internal/motion/registry"
	"railpulse/internal/motion/timing"
)

// PWMDriver is the hardware abstraction a PWM backend needs: bind a
// pin to a slice, program its divisor/wrap/level, and gate the slice
// and its wrap interrupt so it arms N pulses then self-stops.
type PWMDriver interface {
	// ConfigurePin binds pin to its PWM slice/channel and returns the
	// slice number (RP2040: slice = (pin>>1)&0x7).
	ConfigurePin(pin gpio.Pin) (slice uint8, err error)

	// Configure programs the slice's clock divisor, wrap (period) and
	// comparator level (duty) registers. Always called with the slice
	// disabled.
	Configure(slice uint8, div timing.PWMDivisor, level uint32) error

	// Enable gates the slice's clock on/off.
	Enable(slice uint8, on bool)

	// EnableIRQ gates the slice's wrap interrupt on/off.
	EnableIRQ(slice uint8, on bool)

	// ClearIRQ clears any pending wrap-interrupt flag for the slice.
	ClearIRQ(slice uint8)

	// ForceLow takes the pin out of PWM control and drives it low via
	// GPIO-SIO. PWM-disabled alone leaves the pin level indeterminate,
	// so this is a required, separate step.
	ForceLow(pin gpio.Pin) error
}

// PWMBackend implements Handle by generating N pulses at frequency hz
// on a hardware PWM slice, relying on the shared wrap-IRQ in
// internal/motion/registry to count wraps down to zero.
type PWMBackend struct {
	FSys   float64 // system clock feeding the PWM slices
	Driver PWMDriver

	pin   gpio.Pin
	slice uint8
}

// NewPWMBackend constructs a PWM backend against fSys and the given
// hardware driver.
func NewPWMBackend(fSys float64, driver PWMDriver) *PWMBackend {
	return &PWMBackend{FSys: fSys, Driver: driver}
}

// Init binds pin to PWM, forces it low, and leaves the slice disarmed.
func (b *PWMBackend) Init(pin gpio.Pin) error {
	slice, err := b.Driver.ConfigurePin(pin)
	if err != nil {
		return err
	}
	b.pin = pin
	b.slice = slice
	return b.Driver.ForceLow(pin)
}

func (b *PWMBackend) Kind() Kind { return PWM }

// Start arms the slice for p.Steps pulses at p.Hz. A zero frequency
// or zero step count is a no-op: the arbiter treats zero magnitude/hz
// as a successful no-op, but the backend tolerates being asked
// directly too.
func (b *PWMBackend) Start(p StepParams) error {
	if p.Hz <= 0 || p.Steps == 0 {
		return nil
	}

	div := timing.ChoosePWMDivisor(b.FSys, p.Hz)
	level := div.Wrap / 2 // 50% duty

	b.Driver.Enable(b.slice, false)
	if err := b.Driver.Configure(b.slice, div, level); err != nil {
		return err
	}
	b.Driver.ClearIRQ(b.slice)
	registry.PWMArm(b.slice, uint32(p.Steps), b.onComplete)
	b.Driver.EnableIRQ(b.slice, true)
	b.Driver.Enable(b.slice, true)
	return nil
}

// onComplete is the registry's wrap-IRQ completion callback: disable
// the slice and its IRQ, and force the pin back to idle-low.
func (b *PWMBackend) onComplete() {
	b.Driver.Enable(b.slice, false)
	b.Driver.EnableIRQ(b.slice, false)
	_ = b.Driver.ForceLow(b.pin)
}

// StartStream is not supported by the PWM backend.
func (b *PWMBackend) StartStream(StreamWords) error {
	return errUnsupported
}

// Stop disables the slice and its IRQ, clears the registry entry, and
// forces idle-low — the required exit path on every command
// termination.
func (b *PWMBackend) Stop() {
	b.Driver.Enable(b.slice, false)
	b.Driver.EnableIRQ(b.slice, false)
	registry.PWMDisarm(b.slice)
	_ = b.Driver.ForceLow(b.pin)
}

// IdleLevel reports whether the slice is currently disarmed (and
// therefore the pin is held low).
func (b *PWMBackend) IdleLevel() bool {
	return !registry.PWMActive(b.slice)
}
