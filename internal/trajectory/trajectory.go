// Package trajectory reconstructs continuous per-axis position from
// the same command stream the arbiter consumes, given each command's
// send timestamp. It is a host-side, pure in-memory integrator:
// piecewise-constant-velocity segments with overwrite semantics and
// binary-search pose sampling.
package trajectory

import (
	"sort"

	"railpulse/internal/motion/frame"
	"railpulse/internal/trajectory/config"
)

// Segment is one piecewise-constant-velocity run on a single axis.
type Segment struct {
	TStart   float64 // seconds, relative to session start
	TEnd     float64
	Velocity float64 // steps/second, signed
	XStart   float64 // axis position (steps) at TStart
}

// axis holds one motor's accumulated segment history plus its static
// preset offset.
type axis struct {
	cfg      config.AxisConfig
	preset   float64
	segments []Segment
}

func clampToSegment(t float64, s Segment) float64 {
	if t < s.TStart {
		return s.TStart
	}
	if t > s.TEnd {
		return s.TEnd
	}
	return t
}

// truncate cuts the axis's last segment short at tRel if it is still
// running past that point (overwrite semantics).
func (a *axis) truncate(tRel float64) {
	if len(a.segments) == 0 {
		return
	}
	last := &a.segments[len(a.segments)-1]
	if tRel < last.TEnd {
		last.TEnd = tRel
	}
}

// append adds a new segment starting at tRel, anchored to wherever the
// axis's motion actually is at that instant (continuity).
func (a *axis) append(tRel, duration, velocity float64) {
	xAtStart := a.positionWithoutPreset(tRel)
	a.segments = append(a.segments, Segment{
		TStart:   tRel,
		TEnd:     tRel + duration,
		Velocity: velocity,
		XStart:   xAtStart,
	})
}

// positionWithoutPreset integrates the segment history (not including
// the static preset offset) at tRel.
func (a *axis) positionWithoutPreset(tRel float64) float64 {
	if len(a.segments) == 0 {
		return 0
	}
	idx := a.segmentIndex(tRel)
	if idx < 0 {
		return a.segments[0].XStart
	}
	if idx >= len(a.segments) {
		last := a.segments[len(a.segments)-1]
		return last.XStart + last.Velocity*(last.TEnd-last.TStart)
	}
	s := a.segments[idx]
	t := clampToSegment(tRel, s)
	return s.XStart + s.Velocity*(t-s.TStart)
}

// segmentIndex binary-searches for the segment containing tRel.
// Returns -1 if tRel precedes every segment, len(segments) if it
// follows the last one.
func (a *axis) segmentIndex(tRel float64) int {
	if len(a.segments) == 0 {
		return -1
	}
	if tRel < a.segments[0].TStart {
		return -1
	}
	last := a.segments[len(a.segments)-1]
	if tRel > last.TEnd {
		return len(a.segments)
	}
	i := sort.Search(len(a.segments), func(i int) bool {
		return a.segments[i].TEnd >= tRel
	})
	if i == len(a.segments) {
		return len(a.segments) - 1
	}
	return i
}

// poseAt returns this axis's position (steps, including preset
// offset) at tRel.
func (a *axis) poseAt(tRel float64) float64 {
	return a.preset + a.positionWithoutPreset(tRel)
}

// Engine is the host-side trajectory reconstructor for both motors
// (motor 0 -> X, motor 1 -> Y).
type Engine struct {
	cfg config.SessionConfig

	sessionStartSet bool
	sessionStartAbs float64 // seconds, arbitrary epoch chosen by the caller

	x axis
	y axis
}

// New constructs an Engine using the given session configuration.
func New(cfg config.SessionConfig) *Engine {
	return &Engine{
		cfg: cfg,
		x:   axis{cfg: cfg.X},
		y:   axis{cfg: cfg.Y},
	}
}

// Start anchors session_start_abs. A zero tAbs defers anchoring to the
// first Feed() call instead.
func (e *Engine) Start(tAbs float64) {
	if tAbs == 0 {
		return
	}
	e.sessionStartAbs = tAbs
	e.sessionStartSet = true
}

// SetPresetSteps applies a pure static offset to every future pose
// query; it creates no segment.
func (e *Engine) SetPresetSteps(x0, y0 float64) {
	e.x.preset = x0
	e.y.preset = y0
}

// Feed decodes rawPacket and, for every axis bit set in its motor
// mask, truncates that axis's running segment at tSendAbs and appends
// a new one. Returns nil if rawPacket doesn't parse as a complete
// 11-byte frame.
func (e *Engine) Feed(tSendAbs float64, rawPacket []byte) *frame.Command {
	var dec frame.Decoder
	cmds := dec.Feed(rawPacket)
	if len(cmds) == 0 {
		return nil
	}
	cmd := cmds[0]

	if !e.sessionStartSet {
		e.sessionStartAbs = tSendAbs
		e.sessionStartSet = true
	}
	tRel := tSendAbs - e.sessionStartAbs

	var duration float64
	switch cmd.Mode {
	case frame.TimeBounded:
		duration = float64(cmd.Magnitude) / 1000
	case frame.StepBounded:
		duration = float64(cmd.Magnitude) / float64(cmd.SpeedHz)
	}

	if cmd.MotorMask&0x1 != 0 {
		bit := (cmd.DirectionMask >> 0) & 1
		v := float64(e.x.cfg.SignFor(bit)) * float64(cmd.SpeedHz)
		e.x.truncate(tRel)
		e.x.append(tRel, duration, v)
	}
	if cmd.MotorMask&0x2 != 0 {
		bit := (cmd.DirectionMask >> 1) & 1
		v := float64(e.y.cfg.SignFor(bit)) * float64(cmd.SpeedHz)
		e.y.truncate(tRel)
		e.y.append(tRel, duration, v)
	}

	return &cmd
}

// PoseAt returns (x_steps, y_steps) at tRel seconds since session
// start. Before the first segment it returns the preset offset; after
// the last, the last segment's terminal position.
func (e *Engine) PoseAt(tRel float64) (x, y float64) {
	return e.x.poseAt(tRel), e.y.poseAt(tRel)
}

// Sample is the batched form of PoseAt, typically called at
// caller-supplied frame timestamps.
func (e *Engine) Sample(timesRel []float64) (xs, ys []float64) {
	xs = make([]float64, len(timesRel))
	ys = make([]float64, len(timesRel))
	for i, t := range timesRel {
		xs[i], ys[i] = e.PoseAt(t)
	}
	return xs, ys
}
