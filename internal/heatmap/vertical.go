// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heatmap

import (
	"math"
	"time"
)

// VerticalTracker integrates vertical acceleration into a displacement
// and commits floor changes once the displacement passes the commit
// threshold in a consistent direction for the hysteresis window.
//
// The first sample seeds the gravity baseline; the device is assumed to be
// at rest when recording starts. While the car is at rest the velocity is
// held at zero and the baseline follows the reading, so a constant bias or
// a tilted device does not accumulate displacement.
type VerticalTracker struct {
	floorHeight     float64
	threshold       float64
	hysteresisMs    int64
	velocityTau     time.Duration
	displacementTau time.Duration

	restBand     float64
	restWindowMs int64
	restVelocity float64
	baselineTau  time.Duration

	seeded     bool
	baseline   float64 // g
	lastTs     int64
	lastAccel  float64 // m/s²
	stillSince int64

	velocity     float64 // m/s
	displacement float64 // m, relative to the last committed floor

	floor        int
	lastCommitAt int64

	pendingDir   int
	pendingSince int64
}

// NewVerticalTracker creates a tracker starting at floor 0.
func NewVerticalTracker(cfg Config) *VerticalTracker {
	return &VerticalTracker{
		floorHeight:     cfg.FloorHeight,
		threshold:       cfg.FloorHeight * cfg.CommitRatio,
		hysteresisMs:    cfg.Hysteresis.Milliseconds(),
		velocityTau:     cfg.VelocityTau,
		displacementTau: cfg.DisplacementTau,
		restBand:        cfg.RestBand,
		restWindowMs:    cfg.RestWindow.Milliseconds(),
		restVelocity:    cfg.RestVelocity,
		baselineTau:     cfg.BaselineTau,
	}
}

// Update integrates the vertical axis of one sample and reports whether a
// floor change was committed.
func (t *VerticalTracker) Update(z float64, ts int64) bool {
	if !t.seeded {
		t.seeded = true
		t.baseline = z
		t.lastTs = ts
		t.stillSince = ts
		return false
	}

	dt := float64(ts-t.lastTs) / 1000
	t.lastTs = ts

	offset := z - t.baseline
	if math.Abs(offset) >= t.restBand {
		t.stillSince = ts
	}
	a := offset * StandardGravity

	if t.resting(ts) {
		t.baseline += offset * (1 - leak(dt, t.baselineTau))
		t.velocity = 0
	} else {
		// trapezoidal step: a sample landing on an acceleration edge only
		// counts half
		t.velocity = t.velocity*leak(dt, t.velocityTau) + (a+t.lastAccel)/2*dt
	}
	t.lastAccel = a
	t.displacement = t.displacement*leak(dt, t.displacementTau) + t.velocity*dt

	dir := 0
	if math.Abs(t.displacement) >= t.threshold {
		dir = 1
		if t.displacement < 0 {
			dir = -1
		}
	}

	if dir == 0 {
		t.pendingDir = 0
		return false
	}
	if dir != t.pendingDir {
		t.pendingDir = dir
		t.pendingSince = ts
	}
	if ts-t.pendingSince < t.hysteresisMs {
		return false
	}

	// one floor per commit; the remainder carries over
	t.floor += dir
	t.displacement -= float64(dir) * t.floorHeight
	t.lastCommitAt = ts

	if math.Abs(t.displacement) >= t.threshold {
		t.pendingSince = ts
	} else {
		t.pendingDir = 0
	}
	return true
}

// resting reports whether the reading has stayed inside the rest band for
// the rest window with the car not moving.
func (t *VerticalTracker) resting(ts int64) bool {
	if t.restWindowMs <= 0 {
		return false
	}
	return ts-t.stillSince >= t.restWindowMs && math.Abs(t.velocity) < t.restVelocity
}

// Floor returns the committed floor index; 0 is where the session started.
func (t *VerticalTracker) Floor() int { return t.floor }

// LastCommitAt returns the timestamp (ms) of the last floor commit, 0 if none.
func (t *VerticalTracker) LastCommitAt() int64 { return t.lastCommitAt }

// Displacement returns the uncommitted displacement in metres.
func (t *VerticalTracker) Displacement() float64 { return t.displacement }

// Baseline returns the current gravity baseline in g.
func (t *VerticalTracker) Baseline() float64 { return t.baseline }
