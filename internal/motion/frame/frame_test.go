package frame

import "testing"

// e1Frame: both motors, motor 1 forward / motor 0 reverse, 1000 Hz, 10000 ms.
var e1Frame = []byte{0xBF, 0x03, 0x01, 0xE8, 0x03, 0x00, 0x00, 0x10, 0x27, 0x00, 0x00}

// e2Frame: motor 0, 800 Hz, 200 pulses.
var e2Frame = []byte{0xAF, 0x01, 0x00, 0x20, 0x03, 0x00, 0x00, 0xC8, 0x00, 0x00, 0x00}

func TestDecodeE1Frame(t *testing.T) {
	var d Decoder
	cmds := d.Feed(e1Frame)
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	c := cmds[0]
	if c.Mode != TimeBounded {
		t.Errorf("Mode = %v, want TimeBounded", c.Mode)
	}
	if c.MotorMask != 0x03 || c.DirectionMask != 0x01 {
		t.Errorf("masks = %#x/%#x, want 0x03/0x01", c.MotorMask, c.DirectionMask)
	}
	if c.SpeedHz != 1000 {
		t.Errorf("SpeedHz = %d, want 1000", c.SpeedHz)
	}
	if c.Magnitude != 10000 {
		t.Errorf("Magnitude = %d, want 10000", c.Magnitude)
	}
}

func TestDecodeE2Frame(t *testing.T) {
	var d Decoder
	cmds := d.Feed(e2Frame)
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	c := cmds[0]
	if c.Mode != StepBounded {
		t.Errorf("Mode = %v, want StepBounded", c.Mode)
	}
	if c.MotorMask != 0x01 {
		t.Errorf("MotorMask = %#x, want 0x01", c.MotorMask)
	}
	if c.SpeedHz != 800 {
		t.Errorf("SpeedHz = %d, want 800", c.SpeedHz)
	}
	if c.Magnitude != 200 {
		t.Errorf("Magnitude = %d, want 200", c.Magnitude)
	}
}

// TestFrameBoundaryRobustness is Testable Property 9: splitting a valid
// frame into arbitrary sub-byte chunks must still decode exactly once.
func TestFrameBoundaryRobustness(t *testing.T) {
	chunkings := [][]int{
		{11},
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{4, 7},
		{1, 10},
		{10, 1},
		{5, 5, 1},
	}

	for _, sizes := range chunkings {
		var d Decoder
		var got []Command
		pos := 0
		for _, n := range sizes {
			got = append(got, d.Feed(e1Frame[pos:pos+n])...)
			pos += n
		}
		if len(got) != 1 {
			t.Errorf("chunking %v produced %d commands, want 1", sizes, len(got))
			continue
		}
		if got[0].SpeedHz != 1000 || got[0].Magnitude != 10000 {
			t.Errorf("chunking %v decoded wrong values: %+v", sizes, got[0])
		}
	}
}

func TestUnknownBytesDiscardedInIdle(t *testing.T) {
	var d Decoder
	noise := []byte{0x00, 0xFF, 0x10, 0xAB}
	got := d.Feed(noise)
	if len(got) != 0 {
		t.Errorf("noise produced %d commands, want 0", len(got))
	}
	// A valid frame after noise must still decode.
	got = d.Feed(e2Frame)
	if len(got) != 1 {
		t.Errorf("got %d commands after noise, want 1", len(got))
	}
}

func TestNegativeFieldsNormalized(t *testing.T) {
	// speed_hz = -1000 (0xFFFFFC18, two's complement little-endian),
	// magnitude = -200.
	f := []byte{0xAF, 0x01, 0x00, 0x18, 0xFC, 0xFF, 0xFF, 0x38, 0xFF, 0xFF, 0xFF}
	var d Decoder
	cmds := d.Feed(f)
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	if cmds[0].SpeedHz != 1000 {
		t.Errorf("SpeedHz = %d, want 1000 (abs of -1000)", cmds[0].SpeedHz)
	}
	if cmds[0].Magnitude != 200 {
		t.Errorf("Magnitude = %d, want 200 (abs of -200)", cmds[0].Magnitude)
	}
}

func TestLegacyRevisionSecondsToMillis(t *testing.T) {
	// TimeBounded, magnitude field = 5 (seconds in legacy revision).
	f := []byte{0xBF, 0x01, 0x00, 0xE8, 0x03, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00}
	d := Decoder{LegacyRevision: true}
	cmds := d.Feed(f)
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	if cmds[0].Magnitude != 5000 {
		t.Errorf("Magnitude = %d, want 5000ms", cmds[0].Magnitude)
	}
}

func TestZeroSpeedNormalizedToOne(t *testing.T) {
	f := []byte{0xAF, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0A, 0x00, 0x00, 0x00}
	var d Decoder
	cmds := d.Feed(f)
	if cmds[0].SpeedHz != 1 {
		t.Errorf("SpeedHz = %d, want 1 (floor)", cmds[0].SpeedHz)
	}
}
