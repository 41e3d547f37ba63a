//go:build tinygo

package critical

import "runtime/interrupt"

// State is the saved interrupt mask returned by Enter.
type State = interrupt.State

// Enter disables interrupts and returns the previous state.
func Enter() State {
	return interrupt.Disable()
}

// Exit restores the interrupt state captured by Enter.
func Exit(s State) {
	interrupt.Restore(s)
}
