// Package arbiter implements the per-motor command arbiter ("PS100"):
// the object that owns STEP/DIR/ENABLE pins and one PIO state-machine
// slot, selects among the Timer/PWM/PIO backends, and tracks the COM1
// (last-completed) / COM2 (current) state pair.
//
// State transitions are explicit enum transitions driven by an
// Update() poll rather than callbacks, with a claim/release pattern
// around the shared backend registry.
package arbiter

import (
	"sync"

	"railpulse/internal/motion/backend"
	"railpulse/internal/motion/clock"
	"railpulse/internal/motion/debug"
	"railpulse/internal/motion/gpio"
	"railpulse/internal/motion/registry"
	"railpulse/internal/motion/timing"
)

// Reason is why the last command slot (COM1) reached its terminal state.
type Reason uint8

const (
	Completed Reason = iota
	Interrupted
	Stopped
	Empty // placeholder reason carried by an empty COM2 slot
)

func (r Reason) String() string {
	switch r {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	case Stopped:
		return "stopped"
	default:
		return "empty"
	}
}

type comState uint8

const (
	stateEmpty comState = iota
	stateRunning
)

// slot is one half of the COM1/COM2 pair.
type slot struct {
	state  comState
	reason Reason
	tEnd   uint32 // only meaningful while state == stateRunning
}

// Config is the fixed wiring for one motor: its pins, its polarity
// inversions, and which backend handles are available to it. Backends
// left nil are simply never selectable.
type Config struct {
	MotorID    uint8
	StepPin    gpio.Pin
	DirPin     gpio.Pin
	EnablePin  gpio.Pin
	HasEnable  bool
	DirInvert  bool
	EnableHigh bool // polarity that means "enabled"

	Timer     backend.Handle
	PWM       backend.Handle
	PIO       backend.Handle // xF (parametric) and xE (stream) share one handle
	PIOInst   uint8
	PIOSM     uint8
}

// Motor is the arbiter for a single stepper, spec component F.
type Motor struct {
	cfg Config

	mu   sync.Mutex
	com1 slot
	com2 slot

	active backend.Handle // which Handle, if any, currently owns the STEP pin
}

// New constructs a Motor in its pre-init state. Call Init before use.
func New(cfg Config) *Motor {
	return &Motor{cfg: cfg}
}

// Init configures DIR (and ENABLE, if present) as outputs, forces
// STEP low, and sets COM1=Completed, COM2=Empty. It does not
// initialize the backend handles in Config; those must already be
// initialized with their pins when the Motor is constructed.
func (m *Motor) Init() error {
	if err := gpio.Must().ConfigureOutput(m.cfg.DirPin); err != nil {
		return err
	}
	if m.cfg.HasEnable {
		if err := gpio.Must().ConfigureOutput(m.cfg.EnablePin); err != nil {
			return err
		}
	}
	if err := gpio.Must().ConfigureOutput(m.cfg.StepPin); err != nil {
		return err
	}
	if err := gpio.Must().SetPin(m.cfg.StepPin, false); err != nil {
		return err
	}

	m.mu.Lock()
	m.com1 = slot{state: stateEmpty, reason: Completed}
	m.com2 = slot{state: stateEmpty, reason: Empty}
	m.mu.Unlock()
	return nil
}

// Enable drives ENABLE to its configured "on" polarity.
func (m *Motor) Enable() error {
	if !m.cfg.HasEnable {
		return nil
	}
	return gpio.Must().SetPin(m.cfg.EnablePin, m.cfg.EnableHigh)
}

// Disable drives ENABLE to its configured "off" polarity.
func (m *Motor) Disable() error {
	if !m.cfg.HasEnable {
		return nil
	}
	return gpio.Must().SetPin(m.cfg.EnablePin, !m.cfg.EnableHigh)
}

// SetDirection drives DIR, applying the configured inversion.
func (m *Motor) SetDirection(forward bool) error {
	return gpio.Must().SetPin(m.cfg.DirPin, forward != m.cfg.DirInvert)
}

// RunSteps runs a step-bounded command on the named backend.
func (m *Motor) RunSteps(steps uint32, hz float64, kind backend.Kind) error {
	return m.arbitrate(kind, func() (backend.Handle, uint64, error) {
		h := m.handleFor(kind)
		if h == nil {
			return nil, 0, errUnsupportedBackend
		}
		if err := h.Start(backend.StepParams{Hz: hz, Steps: steps}); err != nil {
			return nil, 0, err
		}
		estUS := uint64(0)
		if hz > 0 {
			estUS = uint64(float64(steps) * 1e6 / hz)
		}
		return h, estUS, nil
	}, steps == 0 || hz <= 0)
}

// RunVelocity runs for a wall-clock duration at a fixed frequency,
// converting to an equivalent step count and delegating to RunSteps.
func (m *Motor) RunVelocity(hz float64, ms uint32, kind backend.Kind) error {
	steps := timing.DurationToSteps(float64(ms)/1000, hz)
	return m.RunSteps(steps, hz, kind)
}

// RunPIOStream starts a DMA-fed PIO stream; the caller supplies the
// pre-built word array and an estimated duration since the backend
// itself doesn't expose per-pulse completion for streams.
func (m *Motor) RunPIOStream(words []uint32, estUS uint64) error {
	noop := len(words) == 0
	return m.arbitrate(backend.PIOStream, func() (backend.Handle, uint64, error) {
		if m.cfg.PIO == nil {
			return nil, 0, errUnsupportedBackend
		}
		if err := m.cfg.PIO.StartStream(backend.StreamWords{Words: words, EstUS: estUS}); err != nil {
			return nil, 0, err
		}
		return m.cfg.PIO, estUS, nil
	}, noop)
}

// arbitrate implements the 6-step arbitration protocol: resolve any
// interrupted predecessor, handle the no-op case, switch backend
// ownership of the pin, then start the new run. start is only invoked
// once the no-op and interruption checks have already been resolved;
// it returns the handle that is now driving the pin plus the
// estimated run duration in microseconds.
func (m *Motor) arbitrate(kind backend.Kind, start func() (backend.Handle, uint64, error), noop bool) error {
	m.Update()
	debug.Record(debug.Event{Kind: debug.EvtCommandArrived, MotorID: m.cfg.MotorID, Clock: uint32(clock.NowUS())})

	m.mu.Lock()
	if m.com2.state == stateRunning {
		m.mu.Unlock()
		m.terminateHardware()
		m.mu.Lock()
		m.com1 = slot{state: stateEmpty, reason: Interrupted}
		m.com2 = slot{state: stateEmpty, reason: Empty}
		debug.Record(debug.Event{Kind: debug.EvtCommandInterrupted, MotorID: m.cfg.MotorID, Clock: uint32(clock.NowUS())})
	}
	m.mu.Unlock()

	if noop {
		m.stopHardwareToIdle()
		registry.UnbindSM(m.cfg.PIOInst, m.cfg.PIOSM)
		m.mu.Lock()
		m.active = nil
		m.com1 = slot{state: stateEmpty, reason: Completed}
		m.com2 = slot{state: stateEmpty, reason: Empty}
		m.mu.Unlock()
		debug.Record(debug.Event{Kind: debug.EvtCommandCompleted, MotorID: m.cfg.MotorID, Clock: uint32(clock.NowUS())})
		return nil
	}

	m.switchBackend(kind)

	h, estUS, err := start()
	if err != nil {
		// DMA exhaustion and similar: leave COM2 empty, COM1
		// completed, and propagate the error to the caller rather
		// than swallow it.
		m.mu.Lock()
		m.com1 = slot{state: stateEmpty, reason: Completed}
		m.com2 = slot{state: stateEmpty, reason: Empty}
		m.mu.Unlock()
		debug.Record(debug.Event{Kind: debug.EvtCommandCompleted, MotorID: m.cfg.MotorID, Clock: uint32(clock.NowUS())})
		return err
	}

	m.mu.Lock()
	m.active = h
	tEnd := uint32(clock.NowUS() + estUS)
	m.com2 = slot{state: stateRunning, tEnd: tEnd}
	m.mu.Unlock()
	debug.Record(debug.Event{Kind: debug.EvtBackendStart, MotorID: m.cfg.MotorID, Clock: uint32(clock.NowUS()), Value: uint32(estUS)})
	return nil
}

// switchBackend transfers STEP-pin ownership to the target backend,
// stopping whichever backend previously owned it first.
func (m *Motor) switchBackend(kind backend.Kind) {
	m.mu.Lock()
	prev := m.active
	m.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	if kind == backend.PIOParam || kind == backend.PIOStream {
		registry.BindSM(m.cfg.PIOInst, m.cfg.PIOSM, m.cfg.MotorID)
	}
}

func (m *Motor) handleFor(kind backend.Kind) backend.Handle {
	switch kind {
	case backend.Timer:
		return m.cfg.Timer
	case backend.PWM:
		return m.cfg.PWM
	case backend.PIOParam, backend.PIOStream:
		return m.cfg.PIO
	default:
		return nil
	}
}

// Stop immediately terminates hardware and sets the completion reason
// to Stopped.
func (m *Motor) Stop() {
	m.terminateHardware()
	m.mu.Lock()
	m.com1 = slot{state: stateEmpty, reason: Stopped}
	m.com2 = slot{state: stateEmpty, reason: Empty}
	m.active = nil
	m.mu.Unlock()
	debug.Record(debug.Event{Kind: debug.EvtCommandStopped, MotorID: m.cfg.MotorID, Clock: uint32(clock.NowUS())})
}

// terminateHardware dispatches to whichever backend currently owns
// the pin and clears the tracker.
func (m *Motor) terminateHardware() {
	m.mu.Lock()
	h := m.active
	m.active = nil
	m.mu.Unlock()

	if h != nil {
		h.Stop()
		debug.Record(debug.Event{Kind: debug.EvtBackendStop, MotorID: m.cfg.MotorID, Clock: uint32(clock.NowUS())})
	} else {
		m.stopHardwareToIdle()
	}
	registry.UnbindSM(m.cfg.PIOInst, m.cfg.PIOSM)
}

// stopHardwareToIdle is the "None" tracker fallback: force GPIO-low
// directly when no backend is known to be active.
func (m *Motor) stopHardwareToIdle() {
	_ = gpio.Must().SetPin(m.cfg.StepPin, false)
}

// Update is the pure state transition: if COM2 is Running and now
// has passed its t_end, COM1 becomes Completed and COM2 reverts to
// Empty. The backend's own completion mechanism (PWM IRQ, PIO stream
// exhaustion) handles the waveform; Update merely reflects the
// time-based truth. The one exception is the Timer backend, which does
// no step counting: Update stops it once its t_end has passed.
func (m *Motor) Update() {
	var expiredTimer backend.Handle
	m.mu.Lock()
	if m.com2.state == stateRunning && clock.GeU32(uint32(clock.NowUS()), m.com2.tEnd) {
		tEnd := m.com2.tEnd
		m.com1 = slot{state: stateEmpty, reason: Completed}
		m.com2 = slot{state: stateEmpty, reason: Empty}
		if m.active != nil && m.active.Kind() == backend.Timer {
			expiredTimer = m.active
			m.active = nil
		}
		debug.Record(debug.Event{Kind: debug.EvtCommandCompleted, MotorID: m.cfg.MotorID, Clock: uint32(clock.NowUS()), Value: tEnd})
	}
	m.mu.Unlock()
	if expiredTimer != nil {
		expiredTimer.Stop()
	}
}

// Busy reports whether COM2 is Running, refreshing state first.
func (m *Motor) Busy() bool {
	m.Update()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.com2.state == stateRunning
}

// LastCompletion reports COM1's reason, refreshing state first.
func (m *Motor) LastCompletion() Reason {
	m.Update()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.com1.reason
}
