//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"railpulse/internal/motion/backend"
	"railpulse/internal/motion/gpio"
)

// stepperProgram is the shared PIO program every arbiter's PIO
// backend loads (once per instance, via internal/motion/registry's
// loader cache). The wire protocol pushes duty_period and steps as
// two separate 32-bit FIFO words, so the program pulls twice per
// command instead of unpacking one packed word with OUT splits.
//
//	loop:
//	  pull block        ; duty_period -> OSR
//	  mov x, osr         ; X = duty_period
//	  pull block        ; steps -> OSR
//	  mov y, osr         ; Y = steps
//	step_loop:
//	  set pins, 1 [7]    ; STEP high, 7-cycle sideset delay (K=7, see
//	                     ; internal/motion/timing.StepPeriodK)
//	  set pins, 0
//	delay_loop:
//	  jmp x--, delay_loop
//	  jmp y--, step_loop
//	  jmp loop
func buildStepperProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Pull(false, true).Encode(),
		asm.Mov(rp2pio.MovDestX, rp2pio.MovSrcOSR).Encode(),
		asm.Pull(false, true).Encode(),
		asm.Mov(rp2pio.MovDestY, rp2pio.MovSrcOSR).Encode(),
		asm.Set(rp2pio.SetDestPins, 1).Delay(7).Encode(),
		asm.Set(rp2pio.SetDestPins, 0).Encode(),
		asm.Jmp(6, rp2pio.JmpXNZeroDec).Encode(),
		asm.Jmp(4, rp2pio.JmpYNZeroDec).Encode(),
		asm.Jmp(0, rp2pio.JmpAlways).Encode(),
	}
}

// RP2040PIODriver implements backend.PIODriver against the real
// rp2-pio state machines with a claim/load/configure/enable sequence.
type RP2040PIODriver struct {
	sms [2][4]rp2pio.StateMachine
}

func NewRP2040PIODriver() *RP2040PIODriver {
	d := &RP2040PIODriver{}
	for sm := 0; sm < 4; sm++ {
		d.sms[0][sm] = rp2pio.PIO0.StateMachine(uint8(sm))
		d.sms[1][sm] = rp2pio.PIO1.StateMachine(uint8(sm))
	}
	return d
}

func (d *RP2040PIODriver) instancePIO(instance uint8) *rp2pio.PIO {
	if instance == 0 {
		return rp2pio.PIO0
	}
	return rp2pio.PIO1
}

func (d *RP2040PIODriver) ClaimSM(instance, sm uint8) error {
	if !d.sms[instance][sm].TryClaim() {
		return errors.New("rp2040: PIO state machine already claimed")
	}
	return nil
}

func (d *RP2040PIODriver) LoadProgram(instance uint8) (uint8, error) {
	return d.instancePIO(instance).AddProgram(buildStepperProgram(), 0)
}

func (d *RP2040PIODriver) ConfigureSM(instance, sm, offset uint8, stepPin, dirPin gpio.Pin) error {
	pio := d.instancePIO(instance)
	s := d.sms[instance][sm]

	step := machine.Pin(uint8(stepPin))
	step.Configure(machine.PinConfig{Mode: pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(step, 1)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset, offset+8)
	cfg.SetClkDivIntFrac(1, 0)

	s.Init(offset, cfg)
	s.SetPindirsConsecutive(step, 1, true)
	s.SetPinsConsecutive(step, 1, false)
	return nil
}

func (d *RP2040PIODriver) Enable(instance, sm uint8, on bool) {
	d.sms[instance][sm].SetEnabled(on)
}

func (d *RP2040PIODriver) ClearFIFOs(instance, sm uint8) {
	d.sms[instance][sm].ClearFIFOs()
}

func (d *RP2040PIODriver) Restart(instance, sm uint8) {
	d.sms[instance][sm].Restart()
}

func (d *RP2040PIODriver) ForcePinsZero(instance, sm uint8, stepPin gpio.Pin) error {
	step := machine.Pin(uint8(stepPin))
	step.Configure(machine.PinConfig{Mode: machine.PinOutput})
	step.Low()
	d.sms[instance][sm].SetPinsConsecutive(step, 1, false)
	return nil
}

func (d *RP2040PIODriver) TxPut(instance, sm uint8, word uint32) {
	s := d.sms[instance][sm]
	for s.IsTxFIFOFull() {
	}
	s.TxPut(word)
}

// StartStream claims a DMA channel slot for the duration of the call
// and feeds words into the state machine's TX FIFO with a CPU busy
// loop; no DMA transfer is programmed, and the call returns only once
// every word has been queued. Claiming a channel slot can fail if
// every channel is already in use elsewhere on the chip; that failure
// surfaces as ErrDMAUnavailable rather than silently dropping the
// stream.
func (d *RP2040PIODriver) StartStream(instance, sm uint8, words []uint32) error {
	ch, ok := claimDMAChannel()
	if !ok {
		return backend.ErrDMAUnavailable
	}
	defer releaseDMAChannel(ch)

	s := d.sms[instance][sm]
	for _, w := range words {
		for s.IsTxFIFOFull() {
		}
		s.TxPut(w)
	}
	return nil
}

var _ backend.PIODriver = (*RP2040PIODriver)(nil)
