package timing

import "testing"

const fSys = 125_000_000.0 // RP2040 system clock

func TestHzToDutyZeroIsEndMarker(t *testing.T) {
	if got := HzToDuty(0, fSys); got != 0 {
		t.Errorf("HzToDuty(0) = %d, want 0", got)
	}
	if got := HzToDuty(-5, fSys); got != 0 {
		t.Errorf("HzToDuty(-5) = %d, want 0", got)
	}
}

func TestHzToDutyClampsToOne(t *testing.T) {
	// Extremely high frequency should clamp to minimum duty of 1.
	got := HzToDuty(fSys, fSys)
	if got != 1 {
		t.Errorf("HzToDuty(fSys) = %d, want 1", got)
	}
}

func TestHzToDutyRoundTrip(t *testing.T) {
	duty := HzToDuty(1000, fSys)
	// T_step = (2*duty + K) / f_sys should be close to 1/1000s.
	period := (2*float64(duty) + StepPeriodK) / fSys
	got := 1 / period
	if got < 990 || got > 1010 {
		t.Errorf("round trip frequency = %v, want ~1000", got)
	}
}

func TestDurationToSteps(t *testing.T) {
	if got := DurationToSteps(0.2, 800); got != 160 {
		t.Errorf("DurationToSteps(0.2, 800) = %d, want 160", got)
	}
	if got := DurationToSteps(0, 800); got != 0 {
		t.Errorf("DurationToSteps(0, 800) = %d, want 0", got)
	}
}

func TestRPMToDuty(t *testing.T) {
	got := RPMToDuty(600, 200, fSys) // 600 rpm * 200 ppr / 60 = 2000 Hz
	want := HzToDuty(2000, fSys)
	if got != want {
		t.Errorf("RPMToDuty = %d, want %d", got, want)
	}
}

func TestChoosePWMDivisorFrequencyAccuracy(t *testing.T) {
	for _, target := range []float64{100, 1000, 10000} {
		d := ChoosePWMDivisor(fSys, target)
		real := fSys / (d.Div * (float64(d.Wrap) + 1))
		errFrac := (real - target) / target
		if errFrac < 0 {
			errFrac = -errFrac
		}
		if errFrac > 0.0025 {
			t.Errorf("target=%v real=%v err=%v exceeds 0.25%%", target, real, errFrac)
		}
		if d.Wrap < 2 || d.Wrap > 65535 {
			t.Errorf("wrap=%d out of hardware range", d.Wrap)
		}
	}
}

func TestChoosePWMDivisorLowFrequencyFallback(t *testing.T) {
	// A frequency low enough that even div=256 can't keep wrap <= 65535
	// without clamping should hit the documented fallback path.
	d := ChoosePWMDivisor(fSys, 1.0)
	if d.Div < 1 || d.Div > 256 {
		t.Errorf("fallback div=%v out of range", d.Div)
	}
}
