package backend

import (
	"sync"
	"time"

	"railpulse/internal/motion/gpio"
)

// SimPIODriver is a software stand-in for the rp2-pio state machine,
// used by host-side tests. It honors the same contract as real
// hardware would: TxPut blocks conceptually (here, a no-op), and
// StartStream drives the bound STEP pin through the (duty, steps)
// pairs on its own goroutine, stopping at the (0,0) end-marker.
type SimPIODriver struct {
	mu sync.Mutex

	DMAUnavailable bool // test hook: force StartStream to fail

	claimed map[smKey]bool
	pins    map[smKey]gpio.Pin
	running map[smKey]chan struct{}
}

type smKey struct{ instance, sm uint8 }

// NewSimPIODriver creates an empty simulated driver.
func NewSimPIODriver() *SimPIODriver {
	return &SimPIODriver{
		claimed: make(map[smKey]bool),
		pins:    make(map[smKey]gpio.Pin),
		running: make(map[smKey]chan struct{}),
	}
}

func (d *SimPIODriver) ClaimSM(instance, sm uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.claimed[smKey{instance, sm}] = true
	return nil
}

func (d *SimPIODriver) LoadProgram(instance uint8) (uint8, error) {
	return 0, nil
}

func (d *SimPIODriver) ConfigureSM(instance, sm, offset uint8, stepPin, dirPin gpio.Pin) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pins[smKey{instance, sm}] = stepPin
	return nil
}

func (d *SimPIODriver) Enable(instance, sm uint8, on bool) {
	if !on {
		d.stopRunning(instance, sm)
	}
}

func (d *SimPIODriver) ClearFIFOs(instance, sm uint8) {}

func (d *SimPIODriver) Restart(instance, sm uint8) {
	d.stopRunning(instance, sm)
}

func (d *SimPIODriver) ForcePinsZero(instance, sm uint8, stepPin gpio.Pin) error {
	return gpio.Must().SetPin(stepPin, false)
}

func (d *SimPIODriver) TxPut(instance, sm uint8, word uint32) {
	// A real single parametric command pair is short enough that the
	// simulated driver need not actually pulse the pin for unit tests
	// to observe arbiter-level behavior; step counting is exercised
	// through StartStream instead, which does pulse.
}

func (d *SimPIODriver) StartStream(instance, sm uint8, words []uint32) error {
	if d.DMAUnavailable {
		return ErrDMAUnavailable
	}
	d.mu.Lock()
	pin := d.pins[smKey{instance, sm}]
	stop := make(chan struct{})
	d.running[smKey{instance, sm}] = stop
	d.mu.Unlock()

	go func() {
		defer func() {
			_ = gpio.Must().SetPin(pin, false)
		}()
		for i := 0; i+1 < len(words); i += 2 {
			duty, steps := words[i], words[i+1]
			if duty == 0 && steps == 0 {
				return // end-marker: stall.
			}
			for s := uint32(0); s < steps; s++ {
				select {
				case <-stop:
					return
				default:
				}
				_ = gpio.Must().SetPin(pin, true)
				time.Sleep(time.Microsecond)
				_ = gpio.Must().SetPin(pin, false)
				time.Sleep(time.Microsecond)
			}
		}
	}()
	return nil
}

func (d *SimPIODriver) stopRunning(instance, sm uint8) {
	d.mu.Lock()
	stop, ok := d.running[smKey{instance, sm}]
	delete(d.running, smKey{instance, sm})
	d.mu.Unlock()
	if ok {
		close(stop)
	}
}
