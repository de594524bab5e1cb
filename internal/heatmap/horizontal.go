// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heatmap

import (
	"math"
	"time"
)

// HorizontalTracker dead-reckons the lateral position inside the car and
// derives a per-sample intensity. Position survives floor changes.
type HorizontalTracker struct {
	width, depth   float64
	calibrationMax float64
	rawIntensity   bool
	velocityTau    time.Duration
	positionTau    time.Duration

	seeded     bool
	bx, by, bz float64
	lastTs     int64
	vx, vy     float64 // m/s
	px, py     float64 // m from the car centre
}

// NewHorizontalTracker creates a tracker centred in the car.
func NewHorizontalTracker(cfg Config) *HorizontalTracker {
	return &HorizontalTracker{
		width:          cfg.CarWidth,
		depth:          cfg.CarDepth,
		calibrationMax: cfg.CalibrationMax,
		rawIntensity:   cfg.RawIntensity,
		velocityTau:    cfg.VelocityTau,
		positionTau:    cfg.PositionTau,
	}
}

// Update integrates one sample and returns the normalized position and
// intensity, all within [0,1].
func (t *HorizontalTracker) Update(x, y, z float64, ts int64) (nx, ny, intensity float64) {
	if !t.seeded {
		t.seeded = true
		t.bx, t.by, t.bz = x, y, z
		t.lastTs = ts
		return 0.5, 0.5, 0
	}

	dt := float64(ts-t.lastTs) / 1000
	t.lastTs = ts

	dx, dy, dz := x-t.bx, y-t.by, z-t.bz

	vLeak := leak(dt, t.velocityTau)
	t.vx = t.vx*vLeak + dx*StandardGravity*dt
	t.vy = t.vy*vLeak + dy*StandardGravity*dt

	pLeak := leak(dt, t.positionTau)
	t.px = t.px*pLeak + t.vx*dt
	t.py = t.py*pLeak + t.vy*dt

	// intensity is instantaneous; it does not go through the integrators
	mx, my, mz := dx, dy, dz
	if t.rawIntensity {
		mx, my, mz = x, y, z
	}
	intensity = clamp01(math.Sqrt(mx*mx+my*my+mz*mz) / t.calibrationMax)

	return softBound(t.px, t.width), softBound(t.py, t.depth), intensity
}

// softBound maps a centred coordinate onto [0,1] with tanh saturation so
// points approach the walls without piling up on them.
func softBound(p, extent float64) float64 {
	return clamp01(0.5 + 0.5*math.Tanh(2*p/extent))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0.5
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
