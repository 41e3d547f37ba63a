package backend

import (
	"math"

	"railpulse/internal/motion/timing"
)

// SCurveWord is one emitted (duty, steps) pair in PIO stream order.
type SCurveWord struct {
	Duty  uint32
	Steps uint32
}

// SCurveProfile holds the parameters for the optional bell-shaped
// ramp generator. RampStepsPerSide is the nominal
// acceleration/deceleration length; the short-stroke rule shrinks it
// when TotalSteps can't fit two full ramps plus a cruise.
type SCurveProfile struct {
	FSys             float64
	VMax             float64
	TotalSteps       uint32
	RampStepsPerSide uint32
}

// maxSCurveSegments caps the bell template resolution at 32 segments
// regardless of how long the ramp is.
const maxSCurveSegments = 32

// Emit builds the acceleration/cruise/deceleration word sequence,
// terminated by the (0,0) end-marker, ready to hand to a PIO stream
// backend's StartStream.
func (p SCurveProfile) Emit() []SCurveWord {
	if p.TotalSteps == 0 || p.VMax <= 0 {
		return []SCurveWord{{0, 0}}
	}

	srNominal := p.RampStepsPerSide
	sr := srNominal
	alpha := 1.0
	cruise := uint32(0)

	if p.TotalSteps <= 2*srNominal {
		sr = p.TotalSteps / 2
		if srNominal > 0 {
			alpha = float64(sr) / float64(srNominal)
		}
	} else {
		cruise = p.TotalSteps - 2*sr
	}

	if sr == 0 {
		// Too short to ramp at all: run the whole move at v_max.
		return []SCurveWord{
			{timing.HzToDuty(p.VMax, p.FSys), p.TotalSteps},
			{0, 0},
		}
	}

	weights := bellWeights(sr)
	accelSteps := allocateByLargestRemainder(weights, sr)

	words := make([]SCurveWord, 0, 2*len(accelSteps)+2)
	for i, steps := range accelSteps {
		if steps == 0 {
			continue
		}
		v := math.Round(p.VMax * alpha * weights[i])
		if v < 1 {
			v = 1
		}
		words = append(words, SCurveWord{timing.HzToDuty(v, p.FSys), steps})
	}

	if cruise > 0 {
		words = append(words, SCurveWord{timing.HzToDuty(p.VMax, p.FSys), cruise})
	}

	for i := len(accelSteps) - 1; i >= 0; i-- {
		if accelSteps[i] == 0 {
			continue
		}
		v := math.Round(p.VMax * alpha * weights[i])
		if v < 1 {
			v = 1
		}
		words = append(words, SCurveWord{timing.HzToDuty(v, p.FSys), accelSteps[i]})
	}

	words = append(words, SCurveWord{0, 0})
	return words
}

// bellWeights computes g(u) = 6u(1-u) at the mid-point of each of M
// segments spanning the ramp, M = min(32, sr).
func bellWeights(sr uint32) []float64 {
	m := sr
	if m > maxSCurveSegments {
		m = maxSCurveSegments
	}
	w := make([]float64, m)
	for i := range w {
		u := (float64(i) + 0.5) / float64(m)
		w[i] = 6 * u * (1 - u)
	}
	return w
}

// allocateByLargestRemainder distributes sr steps across len(weights)
// segments proportionally to weight, using floor allocation first and
// handing the remainder to the segments with the largest fractional
// remainders until the total matches sr exactly.
func allocateByLargestRemainder(weights []float64, sr uint32) []uint32 {
	n := len(weights)
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		sum = 1
	}

	steps := make([]uint32, n)
	remainders := make([]float64, n)
	allocated := uint32(0)
	for i, w := range weights {
		share := w / sum * float64(sr)
		floor := math.Floor(share)
		steps[i] = uint32(floor)
		remainders[i] = share - floor
		allocated += steps[i]
	}

	remaining := sr - allocated
	for remaining > 0 {
		best := -1
		bestRem := -1.0
		for i, r := range remainders {
			if r > bestRem {
				bestRem = r
				best = i
			}
		}
		if best < 0 {
			break
		}
		steps[best]++
		remainders[best] = -1 // consumed
		remaining--
	}
	return steps
}
