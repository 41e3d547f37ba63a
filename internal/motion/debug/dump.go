package debug

import (
	"encoding/binary"

	"railpulse/tinycompress"
)

// eventBytes is the fixed wire size of one serialized Event: kind(1) +
// motorID(1) + clock(4) + value(4).
const eventBytes = 10

// DumpCompressed serializes the current ring-buffer snapshot and
// zlib-compresses it, for attaching to a post-mortem report without
// spending the UART bandwidth an uncompressed dump would need.
func DumpCompressed() ([]byte, error) {
	events := Snapshot()
	raw := make([]byte, 0, len(events)*eventBytes)
	for _, e := range events {
		var b [eventBytes]byte
		b[0] = byte(e.Kind)
		b[1] = e.MotorID
		binary.LittleEndian.PutUint32(b[2:6], e.Clock)
		binary.LittleEndian.PutUint32(b[6:10], e.Value)
		raw = append(raw, b[:]...)
	}

	enc := tinycompress.NewZlib(len(raw) + 16)
	compressed, n, err := enc.Compress(raw)
	if err != nil {
		return nil, err
	}
	return compressed[:n], nil
}
