//go:build rp2040 || rp2350

package main

import (
	"runtime/volatile"
	"unsafe"

	"railpulse/internal/motion/clock"
)

// RP2040/RP2350 Timer peripheral memory map. The chip has a
// free-running 64-bit microsecond counter; the arbiter only needs its
// low 32 bits, read with the standard high/low/high rollover-safe
// sequence.
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x08
	timerTIMERAWL = timerBase + 0x0C
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// InitClock wires internal/motion/clock.NowFunc to the hardware
// microsecond counter, replacing the host build's time.Now()-based
// default.
func InitClock() {
	clock.NowFunc = func() uint64 { return getHardwareUptime() }
}

// getHardwareUptime reads the full 64-bit timer, retrying if a
// rollover is caught mid-read.
func getHardwareUptime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}
