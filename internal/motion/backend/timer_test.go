package backend

import (
	"testing"
	"time"

	"railpulse/internal/motion/gpio"
)

func TestTimerBackendTogglesAndStops(t *testing.T) {
	sim := gpio.NewSim()
	gpio.SetDriver(sim)

	b := NewTimerBackend(12_000_000, []uint32{1, 8, 64, 256, 1024}, 65535)
	if err := b.Init(1, 2, false, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if b.IdleLevel() != true {
		t.Error("backend should start idle")
	}

	if err := b.Start(StepParams{Hz: 5000}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if b.IdleLevel() {
		t.Error("backend should report running while toggling")
	}
	if b.LastFreq <= 0 {
		t.Error("expected a chosen CTC frequency to be recorded")
	}

	b.Stop()
	level, _ := sim.GetPin(1)
	if level {
		t.Error("STEP pin not low after Stop()")
	}
	if !b.IdleLevel() {
		t.Error("IdleLevel() should be true after Stop()")
	}
}

func TestTimerBackendUnsupportedStream(t *testing.T) {
	gpio.SetDriver(gpio.NewSim())
	b := NewTimerBackend(12_000_000, []uint32{1}, 65535)
	_ = b.Init(1, 2, false, false)
	if err := b.StartStream(StreamWords{}); err == nil {
		t.Error("expected StartStream to fail on a Timer backend")
	}
}
