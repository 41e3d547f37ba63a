// Package timing implements the pure frequency/period/duty conversions
// shared by every stepper backend. None of it touches hardware; the
// arithmetic here is what the PIO, PWM and timer backends each drive
// into a register.
package timing

import "math"

// StepPeriodK is the constant term in the PIO step-period identity
//
//	T_step = (2*duty + K) / f_sys
//
// The value depends on the non-loop instruction count of the PIO
// program in targets/rp2040/pio_driver.go. That program charges a
// 7-cycle sideset delay on the STEP-high phase, so K=7 here. A
// different PIO program (e.g. one without the delay slot) would need
// K=3 instead — the two must never be mixed.
const StepPeriodK = 7

// PWM divisor search tuning.
const (
	wFreq   = 1.0
	wWrap   = 0.02
	wrapMin = 400
	wrapMax = 20000
)

// HzToDuty converts a target step frequency to a PIO duty_period value.
// Returns 0 iff hz <= 0 (the sentinel used as a stream end-marker).
func HzToDuty(hz, fSys float64) uint32 {
	if hz <= 0 {
		return 0
	}
	return cyclesToDuty(fSys/hz, fSys)
}

// PeriodToDuty converts a step period in seconds to a duty_period value.
func PeriodToDuty(sec, fSys float64) uint32 {
	if sec <= 0 {
		return 0
	}
	return cyclesToDuty(sec*fSys, fSys)
}

func cyclesToDuty(cycles, fSys float64) uint32 {
	duty := math.Round((cycles - StepPeriodK) / 2)
	if duty < 1 {
		duty = 1
	}
	return uint32(duty)
}

// RPMToDuty converts revolutions-per-minute and pulses-per-revolution to
// a duty_period value via HzToDuty.
func RPMToDuty(rpm, ppr, fSys float64) uint32 {
	return HzToDuty(rpm*ppr/60, fSys)
}

// DurationToSteps converts a duration in seconds and a step frequency
// to a step count.
func DurationToSteps(sec, hz float64) uint32 {
	if sec <= 0 || hz <= 0 {
		return 0
	}
	return uint32(math.Round(sec * hz))
}

// ChooseCTCPrescaler picks the prescaler (from the candidates the
// timer hardware actually offers) and compare-match top value that
// best approximate hz from fCPU in clear-on-compare-match toggle mode:
// top = f_cpu/(2*hz*prescaler) - 1, clamped to [1, maxTop]. Recomputed
// fresh on every call — nothing here is cached.
func ChooseCTCPrescaler(fCPU, hz float64, prescalers []uint32, maxTop uint32) (prescaler uint32, top uint32, fReal float64) {
	bestErr := math.Inf(1)
	for _, p := range prescalers {
		want := fCPU/(2*hz*float64(p)) - 1
		t := uint32(math.Round(want))
		if t < 1 {
			t = 1
		}
		if t > maxTop {
			t = maxTop
		}
		real := fCPU / (2 * float64(p) * (float64(t) + 1))
		errHz := math.Abs(real - hz)
		if errHz < bestErr {
			bestErr = errHz
			prescaler = p
			top = t
			fReal = real
		}
	}
	return prescaler, top, fReal
}

// PWMDivisor is a chosen clock divisor (8.4 fixed point, 1/16 steps)
// and wrap value for the RP2040-style PWM slice.
type PWMDivisor struct {
	Div  float64 // fixed-point divisor in [1, 256], 1/16 resolution
	Wrap uint32  // wrap register value in [2, 65535]
}

// ChoosePWMDivisor picks the (div, wrap) pair that best approximates
// fTarget from fSys, scoring frequency error against wrap-in-band
// preference. Falls back to div = f_sys/(f*65536) clamped to [1, 256]
// with wrap=65535 when the target frequency is low enough that no
// candidate keeps wrap within the legal range without clamping.
func ChoosePWMDivisor(fSys, fTarget float64) PWMDivisor {
	if fSys <= 0 || fTarget <= 0 {
		return PWMDivisor{Div: 1, Wrap: 2}
	}

	bestScore := math.Inf(1)
	best := PWMDivisor{}
	clamped := true

	for raw := 16; raw <= 4096; raw++ {
		div := float64(raw) / 16.0
		wantWrap := fSys/(div*fTarget) - 1
		if wantWrap < 2 || wantWrap > 65535 {
			// Only reachable via hard clamp; tracked so we know whether
			// any candidate avoided clamping.
		} else {
			clamped = false
		}
		wrap := uint32(math.Round(wantWrap))
		if wrap < 2 {
			wrap = 2
		}
		if wrap > 65535 {
			wrap = 65535
		}

		real := fSys / (div * (float64(wrap) + 1))
		freqErr := math.Abs(real-fTarget) / fTarget

		var wrapPenalty float64
		switch {
		case wrap < wrapMin:
			wrapPenalty = float64(wrapMin-wrap) / float64(wrapMin)
		case wrap > wrapMax:
			wrapPenalty = float64(wrap-wrapMax) / float64(wrapMax)
		}

		score := wFreq*freqErr + wWrap*wrapPenalty
		if score < bestScore {
			bestScore = score
			best = PWMDivisor{Div: div, Wrap: wrap}
		}
	}

	if clamped {
		div := fSys / (fTarget * 65536)
		if div < 1 {
			div = 1
		}
		if div > 256 {
			div = 256
		}
		return PWMDivisor{Div: div, Wrap: 65535}
	}
	return best
}
