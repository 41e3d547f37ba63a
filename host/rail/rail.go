// Package rail wires the host-side serial connection to a
// targets/rp2040 device: it builds and sends 11-byte command frames,
// waits for the device's per-frame "OK\n" acknowledgement, and feeds
// every sent frame into the trajectory engine using the host's own
// send timestamp, reconstructing position without any round-trip
// from the device.
package rail

import (
	"bufio"
	"fmt"
	"time"

	"railpulse/host/serial"
	"railpulse/internal/trajectory"
	"railpulse/internal/trajectory/config"
)

// Session owns one serial connection to a railpulse device plus the
// trajectory reconstruction fed by every frame it sends.
type Session struct {
	port   serial.Port
	reader *bufio.Reader

	Trajectory *trajectory.Engine
}

// Connect opens the serial device at 115200 8N1 and waits for the
// firmware's boot banner, "READY\n".
func Connect(device string) (*Session, error) {
	port, err := serial.Open(serial.DefaultConfig(device))
	if err != nil {
		return nil, fmt.Errorf("rail: failed to open %s: %w", device, err)
	}

	s := &Session{
		port:       port,
		reader:     bufio.NewReader(port),
		Trajectory: trajectory.New(config.Default()),
	}

	line, err := s.reader.ReadString('\n')
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("rail: no READY banner from device: %w", err)
	}
	if line != "READY\n" {
		port.Close()
		return nil, fmt.Errorf("rail: unexpected boot banner %q", line)
	}
	return s, nil
}

// Close releases the underlying serial port.
func (s *Session) Close() error {
	return s.port.Close()
}

// SendFrame writes an 11-byte command frame, blocks for the device's
// "OK\n" acknowledgement, and feeds the frame into the trajectory
// engine at the moment it was actually written: t_send_abs is the
// host's own clock, not the device's.
func (s *Session) SendFrame(frame []byte) error {
	if len(frame) != 11 {
		return fmt.Errorf("rail: frame must be exactly 11 bytes, got %d", len(frame))
	}

	tSend := float64(time.Now().UnixNano()) / 1e9
	if _, err := s.port.Write(frame); err != nil {
		return fmt.Errorf("rail: write failed: %w", err)
	}

	line, err := s.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("rail: no OK from device: %w", err)
	}
	if line != "OK\n" {
		return fmt.Errorf("rail: unexpected device reply %q", line)
	}

	s.Trajectory.Feed(tSend, frame)
	return nil
}

// BuildFrame assembles an 11-byte command frame.
func BuildFrame(timeBounded bool, motorMask, dirMask byte, speedHz, magnitude int32) []byte {
	b := make([]byte, 11)
	if timeBounded {
		b[0] = 0xBF
	} else {
		b[0] = 0xAF
	}
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
