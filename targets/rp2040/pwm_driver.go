//go:build rp2040 || rp2350

package main

import (
	"machine"
	"runtime/volatile"
	"unsafe"

	"railpulse/internal/motion/backend"
	"railpulse/internal/motion/gpio"
	"railpulse/internal/motion/registry"
	"railpulse/internal/motion/timing"
)

// PWM peripheral register offsets (slice = (pin>>1)&0x7), reached
// directly rather than through TinyGo's machine.PWM wrapper, since
// this backend needs the wrap-IRQ enable bits machine.PWM doesn't
// expose.
const (
	pwmBase      = 0x40050000
	pwmSliceSize = 0x14
	pwmCSROffset = 0x00
	pwmDivOffset = 0x04
	pwmTopOffset = 0x10
	pwmCC_Offset = 0x0C

	pwmIRQBase = pwmBase + 0xB0 // INTE
)

func pwmSliceReg(slice uint8, offset uintptr) *volatile.Register32 {
	addr := uintptr(pwmBase) + uintptr(slice)*pwmSliceSize + offset
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

// RP2040PWMDriver implements backend.PWMDriver on real RP2040 PWM
// hardware, wiring the chip's wrap interrupt into
// internal/motion/registry.PWMWrapIRQ so the shared active_slice_mask
// handoff sees every slice's completion regardless of which motor
// owns it.
type RP2040PWMDriver struct{}

func (RP2040PWMDriver) ConfigurePin(pin gpio.Pin) (uint8, error) {
	slice := uint8((uint32(pin) >> 1) & 0x7)
	machine.Pin(uint8(pin)).Configure(machine.PinConfig{Mode: machine.PinPWM})
	return slice, nil
}

func (RP2040PWMDriver) Configure(slice uint8, div timing.PWMDivisor, level uint32) error {
	intPart := uint32(div.Div)
	fracPart := uint32((div.Div-float64(intPart))*16 + 0.5)
	pwmSliceReg(slice, pwmDivOffset).Set((intPart << 4) | fracPart)
	pwmSliceReg(slice, pwmTopOffset).Set(div.Wrap)
	pwmSliceReg(slice, pwmCC_Offset).Set(level | (level << 16))
	return nil
}

func (RP2040PWMDriver) Enable(slice uint8, on bool) {
	reg := pwmSliceReg(slice, pwmCSROffset)
	if on {
		reg.Set(reg.Get() | 1)
	} else {
		reg.Set(reg.Get() &^ 1)
	}
}

func (RP2040PWMDriver) EnableIRQ(slice uint8, on bool) {
	reg := (*volatile.Register32)(unsafe.Pointer(uintptr(pwmIRQBase)))
	if on {
		reg.Set(reg.Get() | (1 << slice))
	} else {
		reg.Set(reg.Get() &^ (1 << slice))
	}
}

func (RP2040PWMDriver) ClearIRQ(slice uint8) {
	intsReg := (*volatile.Register32)(unsafe.Pointer(uintptr(pwmBase + 0xA0)))
	intsReg.Set(1 << slice)
}

func (RP2040PWMDriver) ForceLow(pin gpio.Pin) error {
	p := machine.Pin(uint8(pin))
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return nil
}

// pwmWrapIRQHandler is the single ISR every slice's wrap interrupt
// vectors to on this target; it just forwards to the shared,
// mask-filtered handler in internal/motion/registry, since the wrap
// IRQ is process-wide and shared across every slice.
func pwmWrapIRQHandler() {
	mask := registry.PWMActiveMask()
	for slice := uint8(0); slice < 8; slice++ {
		if mask&(1<<slice) == 0 {
			continue
		}
		intsReg := (*volatile.Register32)(unsafe.Pointer(uintptr(pwmBase + 0xA0)))
		if intsReg.Get()&(1<<slice) == 0 {
			continue
		}
		intsReg.Set(1 << slice)
		registry.PWMWrapIRQ(slice)
	}
}

var _ backend.PWMDriver = RP2040PWMDriver{}
