package backend

import (
	"railpulse/internal/motion/gpio"
	"railpulse/internal/motion/registry"
	"railpulse/internal/motion/timing"
)

// PIODriver is the hardware abstraction for one PIO state machine
// running the shared stepper program. It is intentionally low-level —
// the backend logic (reset protocol, FIFO submission, DMA stream
// start) lives here in hardware-independent form; only the register
// pokes live behind this interface. The `instance` parameter spans
// both of the chip's independently-wired PIO instances.
type PIODriver interface {
	// ClaimSM claims a state machine slot. Returns an error if it is
	// already claimed by firmware outside this package's tracking.
	ClaimSM(instance, sm uint8) error

	// LoadProgram assembles and loads the shared stepper program into
	// the given PIO instance, returning its load offset. Called at
	// most once per instance — internal/motion/registry.PIOEnsureLoaded
	// wraps this to make it idempotent.
	LoadProgram(instance uint8) (offset uint8, err error)

	// ConfigureSM applies the state-machine configuration (wrap points,
	// pin mapping, shift direction) for the loaded program and claims
	// the STEP/DIR pins for PIO function.
	ConfigureSM(instance, sm, offset uint8, stepPin, dirPin gpio.Pin) error

	// Enable gates the state machine's clock.
	Enable(instance, sm uint8, on bool)

	// ClearFIFOs empties both TX and RX FIFOs.
	ClearFIFOs(instance, sm uint8)

	// Restart resets the state machine's PC, X, Y, ISR and OSR.
	Restart(instance, sm uint8)

	// ForcePinsZero drives the bound STEP pin to 0 via both a direct
	// pin-state write and a one-shot injected `SET PINS, 0`
	// instruction — both are required; either alone can leave the
	// output in a stuck-high state depending on where in its cycle the
	// state machine was reset.
	ForcePinsZero(instance, sm uint8, stepPin gpio.Pin) error

	// TxPut blocks until FIFO space is available, then writes one
	// 32-bit word. This wait is bounded to microseconds since the FIFO
	// drains at the state machine's pace.
	TxPut(instance, sm uint8, word uint32)

	// StartStream configures a DMA channel (32-bit transfers,
	// read-increment on, write-increment off, DREQ paced by the state
	// machine's TX FIFO) to feed words into the state machine and
	// starts it. Returns ErrDMAUnavailable if no channel could be
	// claimed, rather than dropping the stream silently.
	StartStream(instance, sm uint8, words []uint32) error
}

// PIOBackend implements Handle for one (PIO instance, state machine)
// slot, supporting both the parametric (single blocking FIFO put)
// and stream (DMA-fed) submission modes.
type PIOBackend struct {
	Driver   PIODriver
	Instance uint8
	SM       uint8
	FSys     float64 // state-machine clock, for the duty_period formula

	stepPin  gpio.Pin
	dirPin   gpio.Pin
	offset   uint8
	lastKind Kind
}

// NewPIOBackend constructs a PIO backend bound to one state-machine
// slot of a PIO instance running at fSys.
func NewPIOBackend(driver PIODriver, instance, sm uint8, fSys float64) *PIOBackend {
	return &PIOBackend{Driver: driver, Instance: instance, SM: sm, FSys: fSys, lastKind: PIOParam}
}

// Init claims the state machine, loads the shared program (once per
// instance, via the registry cache), configures pin mapping, and
// leaves the state machine disabled until the first command.
func (b *PIOBackend) Init(stepPin, dirPin gpio.Pin) error {
	b.stepPin, b.dirPin = stepPin, dirPin

	if err := b.Driver.ClaimSM(b.Instance, b.SM); err != nil {
		return err
	}

	offset, err := registry.PIOEnsureLoaded(b.Instance, func() (uint8, error) {
		return b.Driver.LoadProgram(b.Instance)
	})
	if err != nil {
		return err
	}
	b.offset = offset

	if err := b.Driver.ConfigureSM(b.Instance, b.SM, offset, stepPin, dirPin); err != nil {
		return err
	}

	registry.BindSM(b.Instance, b.SM, 0)
	b.Driver.Enable(b.Instance, b.SM, false)
	return b.Driver.ForcePinsZero(b.Instance, b.SM, stepPin)
}

func (b *PIOBackend) Kind() Kind { return b.lastKind }

// reset performs the mandatory 5-step state-machine reset protocol
// before every new command. Skipping any step risks ghost pulses or
// a stuck-high output.
func (b *PIOBackend) reset() error {
	b.Driver.Enable(b.Instance, b.SM, false)
	b.Driver.ClearFIFOs(b.Instance, b.SM)
	b.Driver.Restart(b.Instance, b.SM)
	if err := b.Driver.ForcePinsZero(b.Instance, b.SM, b.stepPin); err != nil {
		return err
	}
	b.Driver.Enable(b.Instance, b.SM, true)
	return nil
}

// Start submits one (duty_period, steps) pair in parametric (xF) mode:
// a single blocking FIFO put. No-op if hz or steps is zero.
func (b *PIOBackend) Start(p StepParams) error {
	if p.Hz <= 0 || p.Steps == 0 {
		return nil
	}
	b.lastKind = PIOParam
	if err := b.reset(); err != nil {
		return err
	}
	duty := timing.HzToDuty(p.Hz, b.FSys)
	b.Driver.TxPut(b.Instance, b.SM, duty)
	b.Driver.TxPut(b.Instance, b.SM, p.Steps)
	return nil
}

// StartStream hands a pre-built (duty, steps, ..., 0, 0) word array to
// the DMA channel in stream (xE) mode.
func (b *PIOBackend) StartStream(s StreamWords) error {
	if len(s.Words) == 0 {
		return nil
	}
	b.lastKind = PIOStream
	if err := b.reset(); err != nil {
		return err
	}
	return b.Driver.StartStream(b.Instance, b.SM, s.Words)
}

// Stop runs the first four steps of the reset protocol (disable, clear,
// restart, force pins zero) and leaves the state machine disabled — the
// arbiter re-enables it on the next command via reset()/Start().
func (b *PIOBackend) Stop() {
	b.Driver.Enable(b.Instance, b.SM, false)
	b.Driver.ClearFIFOs(b.Instance, b.SM)
	b.Driver.Restart(b.Instance, b.SM)
	_ = b.Driver.ForcePinsZero(b.Instance, b.SM, b.stepPin)
}

// IdleLevel is always true once Stop or a stalled end-marker leaves
// the state machine parked; PIOBackend has no separate "running" flag
// because the hardware (or simulated) stream exhaustion already drives
// the pin low via the reset protocol's forced-zero step.
func (b *PIOBackend) IdleLevel() bool { return true }
