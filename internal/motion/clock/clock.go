// Package clock provides the arbiter's time source: a free-running
// microsecond counter on device, wall-clock on host. The host build
// substitutes time.Now() for the hardware register reads but keeps
// the same one-counter, wraparound-safe-compares discipline.
package clock

import "time"

// NowFunc is swappable so tests can drive the arbiter's notion of
// time deterministically instead of racing a real ticker.
var NowFunc = func() uint64 {
	return uint64(time.Now().UnixMicro())
}

// NowUS returns the current time in microseconds from whatever source
// NowFunc is wired to.
func NowUS() uint64 {
	return NowFunc()
}

// GeU32 reports whether a >= b on a wraparound-safe 32-bit counter,
// the "(long)(now - t_end) >= 0" idiom. Both device firmware (a true
// 32-bit free-running counter) and the host clock (whose low 32 bits
// behave the same way) use this for t_end compares.
func GeU32(a, b uint32) bool {
	return int32(a-b) >= 0
}
