package debug

import "testing"

func TestDumpCompressedNonEmpty(t *testing.T) {
	ResetRing()
	Record(Event{Kind: EvtCommandArrived, MotorID: 0, Clock: 100, Value: 1000})
	Record(Event{Kind: EvtCommandCompleted, MotorID: 0, Clock: 200, Value: 0})

	data, err := DumpCompressed()
	if err != nil {
		t.Fatalf("DumpCompressed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected a non-empty compressed dump")
	}
	if data[0] != 0x78 {
		t.Errorf("expected a zlib header byte 0x78, got %#x", data[0])
	}
}

func TestDumpCompressedEmptyRing(t *testing.T) {
	ResetRing()
	data, err := DumpCompressed()
	if err != nil {
		t.Fatalf("DumpCompressed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected an empty dump for an empty ring, got %d bytes", len(data))
	}
}
