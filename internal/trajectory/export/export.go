// Package export writes the trajectory engine's reconstructed pose to
// two host export formats: a quaternion+translation CSV for downstream
// pose consumers, and a minimal fake-ffmpeg-style progress log used to
// align rail time with camera time.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Sample is one pose reading: a timestamp (seconds, session-relative)
// and a position in steps on each axis.
type Sample struct {
	TRel float64
	X    float64
	Y    float64
}

// CSVWriter emits the `t,qx,qy,qz,qw,tx,ty,tz` schema: quaternion
// fixed at identity (0,0,0,1), translation in meters.
type CSVWriter struct {
	w        *csv.Writer
	StepXM   float64
	StepYM   float64
	ZM       float64
	wroteHdr bool
}

// NewCSVWriter constructs a writer using the given per-axis step size
// in meters; zM is the constant Z translation (default 0).
func NewCSVWriter(w io.Writer, stepXM, stepYM, zM float64) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), StepXM: stepXM, StepYM: stepYM, ZM: zM}
}

// WriteSample appends one pose row, writing the header first if this
// is the first call.
func (c *CSVWriter) WriteSample(s Sample) error {
	if !c.wroteHdr {
		if err := c.w.Write([]string{"t", "qx", "qy", "qz", "qw", "tx", "ty", "tz"}); err != nil {
			return err
		}
		c.wroteHdr = true
	}
	row := []string{
		formatFloat(s.TRel),
		"0", "0", "0", "1",
		formatFloat(s.X * c.StepXM),
		formatFloat(s.Y * c.StepYM),
		formatFloat(c.ZM),
	}
	return c.w.Write(row)
}

// Flush flushes any buffered CSV rows to the underlying writer.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// FakeFFmpegLogger writes lines in the form a real `ffmpeg -loglevel
// info` progress report produces, for downstream tooling that already
// greps that shape to align two time bases.
type FakeFFmpegLogger struct {
	w     io.Writer
	frame int
}

// NewFakeFFmpegLogger constructs a logger writing to w.
func NewFakeFFmpegLogger(w io.Writer) *FakeFFmpegLogger {
	return &FakeFFmpegLogger{w: w}
}

// LogSample emits one progress line for the given session-relative
// timestamp and advances the internal frame counter.
func (f *FakeFFmpegLogger) LogSample(tRel float64) error {
	_, err := fmt.Fprintf(f.w, "frame=%6d pts_time:%.3f\n", f.frame, tRel)
	f.frame++
	return err
}
