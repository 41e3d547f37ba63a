// Package config loads the trajectory engine's per-session defaults:
// step size per axis, the preset offset, and the direction-bit-to-sign
// mapping.
package config

import "encoding/json"

// AxisConfig is one axis's step geometry and direction-bit mapping.
type AxisConfig struct {
	StepMeters  float64 `json:"step_meters"`
	DirBit0Sign int8    `json:"dir_bit0_sign"`
	DirBit1Sign int8    `json:"dir_bit1_sign"`
}

// SessionConfig is the full set of trajectory-session defaults.
type SessionConfig struct {
	X AxisConfig `json:"x"`
	Y AxisConfig `json:"y"`
	Z float64    `json:"z_m"`
}

// DefaultStepMeters is the default step size: 0.5 m over 320000 steps.
const DefaultStepMeters = 0.5 / 320000.0

// Default returns the documented defaults: 0.5m/320000-step geometry
// on both axes, bit=0 -> +1, bit=1 -> -1, Z held at 0.
func Default() SessionConfig {
	return SessionConfig{
		X: AxisConfig{StepMeters: DefaultStepMeters, DirBit0Sign: 1, DirBit1Sign: -1},
		Y: AxisConfig{StepMeters: DefaultStepMeters, DirBit0Sign: 1, DirBit1Sign: -1},
		Z: 0,
	}
}

// Load parses a JSON configuration document and fills any zero-valued
// fields with Default()'s values.
func Load(data []byte) (SessionConfig, error) {
	cfg := Default()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return SessionConfig{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *SessionConfig) {
	def := Default()
	if cfg.X.StepMeters == 0 {
		cfg.X.StepMeters = def.X.StepMeters
	}
	if cfg.X.DirBit0Sign == 0 {
		cfg.X.DirBit0Sign = def.X.DirBit0Sign
	}
	if cfg.X.DirBit1Sign == 0 {
		cfg.X.DirBit1Sign = def.X.DirBit1Sign
	}
	if cfg.Y.StepMeters == 0 {
		cfg.Y.StepMeters = def.Y.StepMeters
	}
	if cfg.Y.DirBit0Sign == 0 {
		cfg.Y.DirBit0Sign = def.Y.DirBit0Sign
	}
	if cfg.Y.DirBit1Sign == 0 {
		cfg.Y.DirBit1Sign = def.Y.DirBit1Sign
	}
}

// SignFor resolves a direction bit (0 or 1) to +1/-1 using this axis's
// configured mapping.
func (a AxisConfig) SignFor(bit uint8) int8 {
	if bit == 0 {
		return a.DirBit0Sign
	}
	return a.DirBit1Sign
}
