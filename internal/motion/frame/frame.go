// Package frame decodes the 11-byte motion command frame from a
// possibly-chunked byte stream. It owns no hardware state; it only
// turns bytes into Command records for the arbiter.
package frame

// Mode is the motion bound a Command is expressed in.
type Mode uint8

const (
	TimeBounded Mode = iota
	StepBounded
)

// Header byte values.
const (
	headerTimeBounded  byte = 0xBF
	headerStepBounded  byte = 0xAF
	frameLength             = 11
)

// Command is a single decoded motion command.
type Command struct {
	Mode           Mode
	MotorMask      uint8
	DirectionMask  uint8
	SpeedHz        uint32 // normalized: |speed_hz|, floor 1 after decode
	Magnitude      uint32 // ms for TimeBounded, pulses for StepBounded
}

// state is the decoder's internal Idle/Receiving state machine.
type state uint8

const (
	stateIdle state = iota
	stateReceiving
)

// Decoder accumulates bytes across arbitrarily small reads and emits one
// Command per complete 11-byte frame. Zero value is ready to use.
//
// LegacyRevision selects the older wire variant where the TimeBounded
// magnitude field is durationSec (int32 seconds) rather than
// milliseconds. This must be set explicitly by the caller — firmware
// revision is never autodetected.
type Decoder struct {
	LegacyRevision bool

	st  state
	buf [frameLength]byte
	n   int
}

// Feed appends newly-received bytes and returns every Command that
// becomes complete as a result, in arrival order. Partial frames are
// retained across calls; unknown bytes seen while Idle are discarded
// silently.
func (d *Decoder) Feed(data []byte) []Command {
	var out []Command
	for _, b := range data {
		if cmd, ok := d.feedByte(b); ok {
			out = append(out, cmd)
		}
	}
	return out
}

func (d *Decoder) feedByte(b byte) (Command, bool) {
	switch d.st {
	case stateIdle:
		if b == headerTimeBounded || b == headerStepBounded {
			d.buf[0] = b
			d.n = 1
			d.st = stateReceiving
		}
		// Unknown byte in Idle: discarded silently.
		return Command{}, false

	case stateReceiving:
		d.buf[d.n] = b
		d.n++
		if d.n < frameLength {
			return Command{}, false
		}
		cmd := d.parse()
		d.n = 0
		d.st = stateIdle
		return cmd, true
	}
	return Command{}, false
}

// parse converts the fully-accumulated 11-byte buffer into a Command.
// Must only be called once d.n == frameLength.
func (d *Decoder) parse() Command {
	mode := TimeBounded
	if d.buf[0] == headerStepBounded {
		mode = StepBounded
	}

	motorMask := d.buf[1]
	dirMask := d.buf[2]

	speed := absInt32(int32(le32(d.buf[3:7])))
	magnitude := absInt32(int32(le32(d.buf[7:11])))

	if speed < 1 {
		speed = 1
	}

	if mode == TimeBounded && d.LegacyRevision {
		// Legacy revision encodes magnitude as whole seconds, not ms.
		magnitude *= 1000
	}

	return Command{
		Mode:          mode,
		MotorMask:     motorMask,
		DirectionMask: dirMask,
		SpeedHz:       speed,
		Magnitude:     magnitude,
	}
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func absInt32(v int32) uint32 {
	if v < 0 {
		v = -v
	}
	return uint32(v)
}
