//go:build rp2040 || rp2350

package main

import (
	"machine"

	"railpulse/internal/motion/gpio"
)

// RP2040GPIODriver implements internal/motion/gpio.Driver directly on
// top of TinyGo's machine.Pin.
type RP2040GPIODriver struct{}

func (RP2040GPIODriver) ConfigureOutput(pin gpio.Pin) error {
	machine.Pin(uint8(pin)).Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

func (RP2040GPIODriver) SetPin(pin gpio.Pin, value bool) error {
	machine.Pin(uint8(pin)).Set(value)
	return nil
}

func (RP2040GPIODriver) GetPin(pin gpio.Pin) (bool, error) {
	return machine.Pin(uint8(pin)).Get(), nil
}
