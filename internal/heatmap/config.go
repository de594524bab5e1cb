// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heatmap

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// StandardGravity converts g-units to m/s².
const StandardGravity = 9.80665

// ErrInvalidConfig is returned (wrapped) by NewEngine when a tuning value is unusable.
var ErrInvalidConfig = errors.New("invalid heatmap config")

// Config holds the tuning values of the engine. Lengths are metres,
// accelerations are g-units.
type Config struct {
	// FloorHeight is the vertical distance between two floors. A commit
	// moves the carried displacement by exactly one FloorHeight.
	FloorHeight float64
	// CommitRatio is the share of FloorHeight the displacement must reach
	// before a floor change is armed. It lies in (0.5, 1] so the remainder
	// after a commit never arms the opposite direction.
	CommitRatio float64
	// CarWidth and CarDepth are the footprint mapped onto [0,1]x[0,1].
	CarWidth float64
	CarDepth float64

	// Hysteresis is how long a threshold crossing must keep its direction
	// before the floor change is committed.
	Hysteresis time.Duration

	// CalibrationMax is the acceleration magnitude that maps to intensity 1.
	// The magnitude is taken after removing the gravity baseline, so a
	// motionless device reads 0. RawIntensity uses min(1, |sample|/CalibrationMax)
	// on the raw sample instead, which needs a CalibrationMax above 1 g.
	CalibrationMax float64
	RawIntensity   bool

	// Leak time constants. Zero disables the leak for that integrator.
	VelocityTau     time.Duration
	DisplacementTau time.Duration
	PositionTau     time.Duration

	// The car is at rest once the vertical reading has stayed within
	// RestBand of the gravity baseline for RestWindow and the vertical
	// velocity is below RestVelocity (m/s). At rest the velocity is zeroed
	// and the baseline follows the reading with BaselineTau, absorbing
	// sensor bias and device tilt smaller than RestBand. A zero RestWindow
	// disables rest detection; a zero BaselineTau freezes the baseline.
	RestBand     float64
	RestWindow   time.Duration
	RestVelocity float64
	BaselineTau  time.Duration

	// MaxAccel rejects samples with any axis beyond this magnitude.
	MaxAccel float64

	// PathTimeFormat and Location render PathStep.Time.
	PathTimeFormat string
	Location       *time.Location
}

// DefaultConfig returns the values used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		FloorHeight:     3.0,
		CommitRatio:     0.6,
		CarWidth:        1.6,
		CarDepth:        1.4,
		Hysteresis:      300 * time.Millisecond,
		CalibrationMax:  0.5,
		VelocityTau:     60 * time.Second,
		DisplacementTau: 60 * time.Second,
		PositionTau:     8 * time.Second,
		RestBand:        0.03,
		RestWindow:      time.Second,
		RestVelocity:    0.5,
		BaselineTau:     5 * time.Second,
		MaxAccel:        16,
		PathTimeFormat:  "15:04:05",
	}
}

// Validate reports the first unusable value.
func (c Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"floor height", c.FloorHeight},
		{"car width", c.CarWidth},
		{"car depth", c.CarDepth},
		{"calibration max", c.CalibrationMax},
		{"max accel", c.MaxAccel},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return fmt.Errorf("%w: %s must be positive and finite, got %v", ErrInvalidConfig, p.name, p.v)
		}
	}

	if c.Hysteresis < 0 {
		return fmt.Errorf("%w: hysteresis must not be negative, got %s", ErrInvalidConfig, c.Hysteresis)
	}
	if c.VelocityTau < 0 || c.DisplacementTau < 0 || c.PositionTau < 0 || c.BaselineTau < 0 {
		return fmt.Errorf("%w: time constants must not be negative", ErrInvalidConfig)
	}
	if !(c.CommitRatio > 0.5 && c.CommitRatio <= 1) {
		return fmt.Errorf("%w: commit ratio must lie in (0.5, 1], got %v", ErrInvalidConfig, c.CommitRatio)
	}
	if c.RestWindow < 0 {
		return fmt.Errorf("%w: rest window must not be negative, got %s", ErrInvalidConfig, c.RestWindow)
	}
	if c.RestWindow > 0 {
		for _, p := range []struct {
			name string
			v    float64
		}{{"rest band", c.RestBand}, {"rest velocity", c.RestVelocity}} {
			if !(p.v > 0) || math.IsInf(p.v, 0) {
				return fmt.Errorf("%w: %s must be positive and finite when rest detection is on, got %v", ErrInvalidConfig, p.name, p.v)
			}
		}
	}
	return nil
}

// leak returns the decay factor applied to an integrator over dt seconds.
func leak(dt float64, tau time.Duration) float64 {
	if tau <= 0 {
		return 1
	}
	return math.Exp(-dt / tau.Seconds())
}
