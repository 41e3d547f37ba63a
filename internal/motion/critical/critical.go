//go:build !tinygo

// Package critical brackets the single-threaded-cooperative sections the
// motion core relies on — the PWM wrap IRQ and PIO/DMA pacing are the
// only preempting contexts, so a short interrupt-disable window is
// enough to protect the shared registries in internal/motion/registry.
package critical

// State is a placeholder for interrupt state under the regular Go
// build (used by host-side unit tests; there is no interrupt
// controller to disable).
type State uintptr

// Enter disables interrupts and returns the previous state.
func Enter() State {
	return 0
}

// Exit restores the interrupt state captured by Enter.
func Exit(State) {}
