// Package registry holds the process-wide shared state this firmware
// needs: the PWM wrap-IRQ's active_slice_mask, the idempotent
// per-PIO-instance program loader cache, and the 2x4 PIO-instance x
// state-machine backend tracker matrix. All three are legitimately
// global — there is one PWM IRQ line and two PIO instances on the
// target chip. The PWM bookkeeping races against an actual interrupt
// and is guarded with internal/motion/critical's interrupt-disable
// bracket; the PIO loader cache and SM tracker only ever see mainline
// calls, so a plain mutex is enough for those.
package registry

import (
	"sync"

	"railpulse/internal/motion/critical"
)

// --- PWM wrap-IRQ bookkeeping ---

const maxPWMSlices = 8

var (
	activeMask uint32
	remaining  [maxPWMSlices]uint32
	onDone     [maxPWMSlices]func()
)

// PWMArm marks a slice active with a step budget and a completion
// callback, invoked once the wrap-IRQ handler counts it down to zero.
// Runs with interrupts disabled: PWMWrapIRQ touches the same arrays
// from interrupt context and needs mainline excluded while it does, not
// a goroutine-contention mutex.
func PWMArm(slice uint8, steps uint32, done func()) {
	s := critical.Enter()
	defer critical.Exit(s)
	remaining[slice] = steps
	onDone[slice] = done
	activeMask |= 1 << slice
}

// PWMDisarm clears a slice's active bit and pending callback, used by
// explicit Stop() paths (as opposed to natural wrap-counted completion).
func PWMDisarm(slice uint8) {
	s := critical.Enter()
	defer critical.Exit(s)
	activeMask &^= 1 << slice
	remaining[slice] = 0
	onDone[slice] = nil
}

// PWMActive reports whether a slice is currently armed.
func PWMActive(slice uint8) bool {
	s := critical.Enter()
	defer critical.Exit(s)
	return activeMask&(1<<slice) != 0
}

// PWMActiveMask returns the current active_slice_mask, mainly for
// tests and diagnostics.
func PWMActiveMask() uint32 {
	s := critical.Enter()
	defer critical.Exit(s)
	return activeMask
}

// PWMWrapIRQ is the single shared wrap-IRQ handler every PWM slice's
// interrupt vectors to. It must filter on the active mask so slices
// belonging to unrelated PWM users are left untouched. Runs already
// inside interrupt context, so it touches activeMask/remaining/onDone
// directly rather than taking the critical section mainline uses to
// keep this same handler from preempting it mid-update.
func PWMWrapIRQ(slice uint8) {
	if activeMask&(1<<slice) == 0 {
		return
	}
	if remaining[slice] > 0 {
		remaining[slice]--
	}
	done := remaining[slice] == 0
	var cb func()
	if done {
		cb = onDone[slice]
		activeMask &^= 1 << slice
		onDone[slice] = nil
	}

	if cb != nil {
		cb()
	}
}

// --- PIO program loader cache ---

const pioInstances = 2

var (
	pioMu      sync.Mutex
	progLoaded [pioInstances]bool
	progOffset [pioInstances]uint8
)

// PIOEnsureLoaded loads the shared stepper program into the given PIO
// instance exactly once, returning the cached offset on subsequent
// calls. load is only invoked the first time.
func PIOEnsureLoaded(instance uint8, load func() (uint8, error)) (uint8, error) {
	pioMu.Lock()
	defer pioMu.Unlock()
	if progLoaded[instance] {
		return progOffset[instance], nil
	}
	off, err := load()
	if err != nil {
		return 0, err
	}
	progLoaded[instance] = true
	progOffset[instance] = off
	return off, nil
}

// --- Backend tracker: PIO instance × state machine binding ---

const smPerInstance = 4

// Tracker records which motor owns a given (PIO instance, state
// machine) slot, so multiple arbiters on the same chip don't collide.
type Tracker struct {
	Bound   bool
	MotorID uint8
}

var (
	trackerMu sync.Mutex
	trackers  [pioInstances][smPerInstance]Tracker
)

// BindSM claims a state-machine slot for motorID.
func BindSM(instance, sm, motorID uint8) {
	trackerMu.Lock()
	defer trackerMu.Unlock()
	trackers[instance][sm] = Tracker{Bound: true, MotorID: motorID}
}

// UnbindSM releases a state-machine slot.
func UnbindSM(instance, sm uint8) {
	trackerMu.Lock()
	defer trackerMu.Unlock()
	trackers[instance][sm] = Tracker{}
}

// SMOwner reports the motor currently bound to a state-machine slot,
// if any.
func SMOwner(instance, sm uint8) (motorID uint8, bound bool) {
	trackerMu.Lock()
	defer trackerMu.Unlock()
	t := trackers[instance][sm]
	return t.MotorID, t.Bound
}
