//go:build rp2040 || rp2350

package main

import (
	"encoding/hex"
	"machine"
	"runtime/interrupt"
	"time"

	"railpulse/internal/motion/arbiter"
	"railpulse/internal/motion/backend"
	"railpulse/internal/motion/debug"
	"railpulse/internal/motion/frame"
	"railpulse/internal/motion/gpio"
)

// pwmIRQNum is the RP2040's shared PWM wrap interrupt vector.
const pwmIRQNum = 8

// Pin assignments for a two-axis (X, Y) rail on a known board.
const (
	motor0StepPin = 2
	motor0DirPin  = 3
	motor1StepPin = 4
	motor1DirPin  = 5

	uartTX = 0
	uartRX = 1

	fSys = 125_000_000.0
)

var (
	motors  [2]*arbiter.Motor
	decoder frame.Decoder
	uart    = machine.UART0
)

func main() {
	InitClock()
	gpio.SetDriver(RP2040GPIODriver{})

	interrupt.New(pwmIRQNum, func(interrupt.Interrupt) { pwmWrapIRQHandler() }).Enable()

	uart.Configure(machine.UARTConfig{BaudRate: 115200, TX: machine.Pin(uartTX), RX: machine.Pin(uartRX)})
	debug.SetWriter(func(msg string) { uart.Write([]byte(msg)) })

	pwmDriver := RP2040PWMDriver{}
	pioDriver := NewRP2040PIODriver()

	motors[0] = newMotor(0, motor0StepPin, motor0DirPin, 0, 0, pwmDriver, pioDriver)
	motors[1] = newMotor(1, motor1StepPin, motor1DirPin, 0, 1, pwmDriver, pioDriver)

	for _, m := range motors {
		if err := m.Init(); err != nil {
			panic(err)
		}
	}

	uart.Write([]byte("READY\n"))

	buf := make([]byte, 64)
	for {
		func() {
			defer func() {
				if recover() == nil {
					return
				}
				// a malformed frame must never halt the device; attach a
				// compressed timing-ring dump so the host can see what
				// the arbiter was doing right before the panic.
				if dump, err := debug.DumpCompressed(); err == nil {
					uart.Write([]byte("DUMP "))
					uart.Write([]byte(hex.EncodeToString(dump)))
					uart.Write([]byte("\n"))
				}
			}()

			if n := uart.Buffered(); n > 0 {
				if n > len(buf) {
					n = len(buf)
				}
				read, _ := uart.Read(buf[:n])
				for _, cmd := range decoder.Feed(buf[:read]) {
					dispatch(cmd)
					uart.Write([]byte("OK\n"))
				}
			}

			for _, m := range motors {
				m.Update()
			}
		}()

		time.Sleep(100 * time.Microsecond)
	}
}

func newMotor(id uint8, stepPin, dirPin uint32, pioInst, pioSM uint8, pwmDriver backend.PWMDriver, pioDriver backend.PIODriver) *arbiter.Motor {
	sp, dp := gpio.Pin(stepPin), gpio.Pin(dirPin)

	timerBackend := backend.NewTimerBackend(fSys, []uint32{1, 8, 64, 256, 1024}, 65535)
	_ = timerBackend.Init(sp, dp, false, false)

	pwmBackend := backend.NewPWMBackend(fSys, pwmDriver)
	_ = pwmBackend.Init(sp)

	pioBackend := backend.NewPIOBackend(pioDriver, pioInst, pioSM, fSys)
	_ = pioBackend.Init(sp, dp)

	cfg := arbiter.Config{
		MotorID: id,
		StepPin: sp,
		DirPin:  dp,
		Timer:   timerBackend,
		PWM:     pwmBackend,
		PIO:     pioBackend,
		PIOInst: pioInst,
		PIOSM:   pioSM,
	}
	return arbiter.New(cfg)
}

func dispatch(cmd frame.Command) {
	for axis := uint8(0); axis < 2; axis++ {
		if cmd.MotorMask&(1<<axis) == 0 {
			continue
		}
		m := motors[axis]
		forward := (cmd.DirectionMask>>axis)&1 == 0
		_ = m.SetDirection(forward)

		switch cmd.Mode {
		case frame.TimeBounded:
			_ = m.RunVelocity(float64(cmd.SpeedHz), cmd.Magnitude, backend.PWM)
		case frame.StepBounded:
			_ = m.RunSteps(cmd.Magnitude, float64(cmd.SpeedHz), backend.PWM)
		}
	}
}
