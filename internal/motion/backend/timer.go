package backend

import (
	"sync"
	"time"

	"railpulse/internal/motion/gpio"
	"railpulse/internal/motion/timing"
)

// TimerBackend drives a STEP pin by toggling it in clear-on-compare-
// match mode, producing a 50% duty square wave. It does no step
// counting — the arbiter enforces duration by calling Stop() after
// the command's time budget elapses.
//
// A goroutine-driven ticker stands in for the hardware compare-match
// interrupt: targets/rp2040/clock.go only polls a free-running
// microsecond counter, so this is the direct, host-testable
// equivalent of the same polled-toggle design.
type TimerBackend struct {
	// FCPU is the timer's input clock; RP2040's hardware timer tick
	// rate (1MHz) unless overridden for a different target.
	FCPU float64
	// Prescalers lists the divisor options available, coarsest last.
	// Recomputed against every Start() call.
	Prescalers []uint32
	MaxTop     uint32

	mu         sync.Mutex
	stepPin    gpio.Pin
	dirPin     gpio.Pin
	invertStep bool
	invertDir  bool

	stopCh  chan struct{}
	running bool
	level   bool

	// LastPrescaler/LastTop/LastFreq record the most recent CTC
	// configuration chosen by Start, for inspection in tests.
	LastPrescaler uint32
	LastTop       uint32
	LastFreq      float64
}

// NewTimerBackend constructs a CTC-toggle backend for a timer whose
// input clock runs at fCPU, offering the given prescaler options and
// an hardware top-register width (255 for 8-bit, 65535 for 16-bit).
func NewTimerBackend(fCPU float64, prescalers []uint32, maxTop uint32) *TimerBackend {
	return &TimerBackend{FCPU: fCPU, Prescalers: prescalers, MaxTop: maxTop}
}

// Init configures DIR output and forces STEP to GPIO-low, the way the
// arbiter expects every backend to start idle.
func (b *TimerBackend) Init(stepPin, dirPin gpio.Pin, invertStep, invertDir bool) error {
	b.stepPin, b.dirPin = stepPin, dirPin
	b.invertStep, b.invertDir = invertStep, invertDir
	if err := gpio.Must().ConfigureOutput(stepPin); err != nil {
		return err
	}
	if err := gpio.Must().ConfigureOutput(dirPin); err != nil {
		return err
	}
	return b.forceLow()
}

func (b *TimerBackend) Kind() Kind { return Timer }

// SetDirection sets the DIR output applying the configured polarity.
func (b *TimerBackend) SetDirection(reverse bool) error {
	return gpio.Must().SetPin(b.dirPin, reverse != b.invertDir)
}

// Start begins toggling STEP at p.Hz. p.Steps is ignored: this
// backend does no step counting.
func (b *TimerBackend) Start(p StepParams) error {
	b.mu.Lock()
	if b.running {
		b.stopLocked()
	}
	if err := b.SetDirection(p.Direction); err != nil {
		b.mu.Unlock()
		return err
	}

	prescaler, top, real := timing.ChooseCTCPrescaler(b.FCPU, p.Hz, b.Prescalers, b.MaxTop)
	b.LastPrescaler, b.LastTop, b.LastFreq = prescaler, top, real

	interval := time.Duration(float64(time.Second) / (2 * real))
	if interval <= 0 {
		interval = time.Nanosecond
	}

	stop := make(chan struct{})
	b.stopCh = stop
	b.running = true
	b.mu.Unlock()

	go b.toggleLoop(interval, stop)
	return nil
}

func (b *TimerBackend) toggleLoop(interval time.Duration, stop chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			b.mu.Lock()
			b.level = !b.level
			_ = gpio.Must().SetPin(b.stepPin, b.level != b.invertStep)
			b.mu.Unlock()
		}
	}
}

// StartStream is not supported by the timer backend.
func (b *TimerBackend) StartStream(StreamWords) error {
	return errUnsupported
}

// Stop disables the compare output and drives STEP low.
func (b *TimerBackend) Stop() {
	b.mu.Lock()
	b.stopLocked()
	b.mu.Unlock()
	_ = b.forceLow()
}

func (b *TimerBackend) stopLocked() {
	if b.running {
		close(b.stopCh)
		b.running = false
	}
}

func (b *TimerBackend) forceLow() error {
	b.level = false
	return gpio.Must().SetPin(b.stepPin, b.invertStep)
}

// IdleLevel reports whether STEP is currently held low.
func (b *TimerBackend) IdleLevel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.running
}
