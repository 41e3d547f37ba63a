// Package backend defines the uniform contract the arbiter dispatches
// across the three hardware waveform generators (timer CTC-toggle, PWM,
// PIO/DMA) plus the PIO parametric single-command mode, and the
// pure-compute S-curve emitter that feeds PIO streams.
package backend

// Kind is the closed variant of backend a Motor can be bound to. The
// arbiter switches on Kind at command entry and never at steady state.
type Kind uint8

const (
	Timer Kind = iota
	PWM
	PIOParam
	PIOStream
)

func (k Kind) String() string {
	switch k {
	case Timer:
		return "timer"
	case PWM:
		return "pwm"
	case PIOParam:
		return "pio-param"
	case PIOStream:
		return "pio-stream"
	default:
		return "unknown"
	}
}

// StepParams describes a step-bounded or time-bounded run request in
// the backend's own terms: a frequency and a step count. Callers that
// only know a duration convert via internal/motion/timing.DurationToSteps
// before calling Start.
type StepParams struct {
	Hz        float64
	Steps     uint32
	Direction bool // true = reverse
}

// StreamWords is a pre-built PIO-stream instruction array: pairs of
// (duty_period, steps) 32-bit words, ending with the (0,0) end-marker.
// EstUS is the caller's estimated wall-clock duration of the whole
// stream, used by the arbiter to compute t_end since the backend
// itself does not track per-pulse completion for streams.
type StreamWords struct {
	Words []uint32
	EstUS uint64
}

// Handle is a running (or idle) backend instance bound to one motor's
// STEP/DIR pins. Kind/Start/StartStream/Stop/IdleLevel is the whole
// contract; nothing else crosses the arbiter/backend boundary.
type Handle interface {
	// Kind reports which backend this handle is.
	Kind() Kind

	// Start begins a non-blocking step-bounded run. Only valid for
	// Timer, PWM and PIOParam kinds.
	Start(p StepParams) error

	// StartStream begins a DMA-fed PIO stream. Only valid for the
	// PIOStream kind.
	StartStream(s StreamWords) error

	// Stop immediately halts the waveform and leaves the STEP pin
	// GPIO-low, the idle invariant every backend must hold.
	Stop()

	// IdleLevel reports whether the STEP pin is currently held low by
	// this handle's idle path. Each handle answers from its own state
	// (the PWM registry's active mask, the timer's running flag); none
	// reads the pin back.
	IdleLevel() bool
}
