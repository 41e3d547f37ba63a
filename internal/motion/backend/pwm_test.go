package backend

import (
	"testing"
	"time"

	"railpulse/internal/motion/gpio"
)

func TestPWMBackendStepCount(t *testing.T) {
	gpio.SetDriver(gpio.NewSim())
	driver := NewSimPWMDriver()
	b := NewPWMBackend(125_000_000, driver)
	if err := b.Init(5); err != nil {
		t.Fatalf("Init: %v", err)
	}

	done := make(chan struct{})
	// Wrap onComplete with a latch by polling IdleLevel instead of
	// hooking internals: Start, then wait for the backend to go idle.
	if err := b.Start(StepParams{Hz: 2000, Steps: 10}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	go func() {
		for i := 0; i < 200; i++ {
			if b.IdleLevel() {
				close(done)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("backend never went idle after N pulses")
	}
}

func TestPWMBackendZeroIsNoop(t *testing.T) {
	gpio.SetDriver(gpio.NewSim())
	driver := NewSimPWMDriver()
	b := NewPWMBackend(125_000_000, driver)
	_ = b.Init(6)

	if err := b.Start(StepParams{Hz: 0, Steps: 10}); err != nil {
		t.Fatalf("Start with hz=0: %v", err)
	}
	if !b.IdleLevel() {
		t.Error("backend should remain idle when hz=0")
	}

	if err := b.Start(StepParams{Hz: 1000, Steps: 0}); err != nil {
		t.Fatalf("Start with steps=0: %v", err)
	}
	if !b.IdleLevel() {
		t.Error("backend should remain idle when steps=0")
	}
}

func TestPWMBackendStopForcesLow(t *testing.T) {
	sim := gpio.NewSim()
	gpio.SetDriver(sim)
	driver := NewSimPWMDriver()
	b := NewPWMBackend(125_000_000, driver)
	_ = b.Init(7)

	_ = b.Start(StepParams{Hz: 500, Steps: 100000})
	time.Sleep(20 * time.Millisecond)
	b.Stop()

	level, _ := sim.GetPin(7)
	if level {
		t.Error("STEP pin not low after Stop()")
	}
	if !b.IdleLevel() {
		t.Error("IdleLevel() should be true after Stop()")
	}
}
