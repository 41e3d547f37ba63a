package backend

import (
	"sync"
	"time"

	"railpulse/internal/motion/gpio"
	"railpulse/internal/motion/registry"
	"railpulse/internal/motion/timing"
)

// SimPWMDriver is a software stand-in for a hardware PWM slice driver,
// used by host-side tests (there is no RP2040 PWM peripheral to talk
// to outside the target build). It
// reproduces wrap-IRQ timing with a ticker instead of silicon, calling
// registry.PWMWrapIRQ exactly as the real interrupt vector would.
type SimPWMDriver struct {
	mu      sync.Mutex
	nextSl  uint8
	slices  map[gpio.Pin]uint8
	levels  map[uint8]bool
	enabled map[uint8]bool
	stop    map[uint8]chan struct{}
}

// NewSimPWMDriver creates an empty simulated driver.
func NewSimPWMDriver() *SimPWMDriver {
	return &SimPWMDriver{
		slices:  make(map[gpio.Pin]uint8),
		levels:  make(map[uint8]bool),
		enabled: make(map[uint8]bool),
		stop:    make(map[uint8]chan struct{}),
	}
}

func (s *SimPWMDriver) ConfigurePin(pin gpio.Pin) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slices[pin]; ok {
		return sl, nil
	}
	sl := s.nextSl
	s.nextSl++
	s.slices[pin] = sl
	return sl, nil
}

func (s *SimPWMDriver) Configure(slice uint8, div timing.PWMDivisor, level uint32) error {
	return nil
}

func (s *SimPWMDriver) Enable(slice uint8, on bool) {
	s.mu.Lock()
	wasOn := s.enabled[slice]
	s.enabled[slice] = on
	s.mu.Unlock()
	if on && !wasOn {
		s.startTicking(slice)
	}
	if !on && wasOn {
		s.stopTicking(slice)
	}
}

func (s *SimPWMDriver) startTicking(slice uint8) {
	stop := make(chan struct{})
	s.mu.Lock()
	s.stop[slice] = stop
	s.mu.Unlock()
	go func() {
		t := time.NewTicker(50 * time.Microsecond)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				registry.PWMWrapIRQ(slice)
			}
		}
	}()
}

func (s *SimPWMDriver) stopTicking(slice uint8) {
	s.mu.Lock()
	stop, ok := s.stop[slice]
	delete(s.stop, slice)
	s.mu.Unlock()
	if ok {
		close(stop)
	}
}

func (s *SimPWMDriver) EnableIRQ(slice uint8, on bool) {}

func (s *SimPWMDriver) ClearIRQ(slice uint8) {}

func (s *SimPWMDriver) ForceLow(pin gpio.Pin) error {
	return gpio.Must().SetPin(pin, false)
}
