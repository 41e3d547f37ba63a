package trajectory

import (
	"math"
	"testing"

	"railpulse/internal/trajectory/config"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// frameBytes builds a raw 11-byte command frame.
func frameBytes(header byte, motorMask, dirMask byte, speedHz, magnitude int32) []byte {
	b := make([]byte, 11)
	b[0] = header
	b[1] = motorMask
	b[2] = dirMask
	putLE32(b[3:7], uint32(speedHz))
	putLE32(b[7:11], uint32(magnitude))
	return b
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func TestTrajectoryOverwriteCorrectness(t *testing.T) {
	e := New(config.Default())

	// (t=0, +X at 1000 Hz for 2s)
	e.Feed(0, frameBytes(0xBF, 0x1, 0x0, 1000, 2000))
	// (t=1, -X at 500 Hz for 2s)
	e.Feed(1, frameBytes(0xBF, 0x1, 0x1, 500, 2000))

	x, _ := e.PoseAt(3)
	if !approxEqual(x, 1000*1-500*2) {
		t.Errorf("pose_at(3) = %v, want %v", x, 1000.0*1-500*2)
	}
	x, _ = e.PoseAt(0.5)
	if !approxEqual(x, 500) {
		t.Errorf("pose_at(0.5) = %v, want 500", x)
	}
	x, _ = e.PoseAt(1.5)
	if !approxEqual(x, 1000-500*0.5) {
		t.Errorf("pose_at(1.5) = %v, want %v", x, 1000.0-500*0.5)
	}
}

func TestTrajectoryPresetOffsetPurity(t *testing.T) {
	e := New(config.Default())
	e.SetPresetSteps(42, -7)

	for _, tRel := range []float64{0, 1, 100, 1e6} {
		x, y := e.PoseAt(tRel)
		if !approxEqual(x, 42) || !approxEqual(y, -7) {
			t.Errorf("pose_at(%v) = (%v,%v), want (42,-7)", tRel, x, y)
		}
	}
}

func TestTrajectoryBeforeSessionStartReturnsPreset(t *testing.T) {
	e := New(config.Default())
	e.SetPresetSteps(10, 20)
	e.Feed(5, frameBytes(0xBF, 0x1, 0x0, 1000, 1000))

	x, y := e.PoseAt(-1)
	if !approxEqual(x, 10) || !approxEqual(y, 20) {
		t.Errorf("pose before session start = (%v,%v), want preset (10,20)", x, y)
	}
}

func TestTrajectoryAfterLastSegmentHoldsTerminalPosition(t *testing.T) {
	e := New(config.Default())
	e.Feed(0, frameBytes(0xAF, 0x1, 0x0, 800, 200)) // 200 pulses at 800Hz -> 0.25s

	x, _ := e.PoseAt(0.25)
	xLate, _ := e.PoseAt(100)
	if !approxEqual(x, xLate) {
		t.Errorf("position should freeze after segment end: at-end=%v, late=%v", x, xLate)
	}
}

func TestTrajectoryE4Scenario(t *testing.T) {
	e := New(config.Default())
	e.Feed(0, frameBytes(0xBF, 0x1, 0x0, 1000, 2000)) // +X 1000Hz, 2000ms
	e.Feed(1, frameBytes(0xBF, 0x1, 0x0, 1, 0))        // hz floored to 1, zero duration

	x, _ := e.PoseAt(0.5)
	if !approxEqual(x, 500) {
		t.Errorf("pose_at(0.5) = %v, want 500", x)
	}
	x, _ = e.PoseAt(1.0)
	if !approxEqual(x, 1000) {
		t.Errorf("pose_at(1.0) = %v, want 1000", x)
	}
	x, _ = e.PoseAt(5.0)
	if !approxEqual(x, 1000) {
		t.Errorf("pose_at(5.0) = %v, want 1000", x)
	}
}

func TestTrajectoryFeedReturnsNilOnMalformedPacket(t *testing.T) {
	e := New(config.Default())
	if cmd := e.Feed(0, []byte{0x01, 0x02}); cmd != nil {
		t.Errorf("expected nil Command for a short/unparseable packet, got %+v", cmd)
	}
}

func TestTrajectoryStepBoundedDuration(t *testing.T) {
	e := New(config.Default())
	e.Feed(0, frameBytes(0xAF, 0x2, 0x0, 400, 100)) // motor 1 (Y), 100 pulses @ 400Hz = 0.25s

	_, y := e.PoseAt(0.25)
	if !approxEqual(y, 100) {
		t.Errorf("Y pose at segment end = %v, want 100", y)
	}
}
