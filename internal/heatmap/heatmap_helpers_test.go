// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heatmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// exactConfig disables every leak and rest detection and commits at the
// full floor height, so integration results can be computed by hand.
func exactConfig() Config {
	cfg := DefaultConfig()
	cfg.CommitRatio = 1
	cfg.VelocityTau = 0
	cfg.DisplacementTau = 0
	cfg.PositionTau = 0
	cfg.RestWindow = 0
	cfg.BaselineTau = 0
	cfg.Location = time.UTC
	return cfg
}

// shippedConfig is DefaultConfig with path times rendered in UTC.
func shippedConfig() Config {
	cfg := DefaultConfig()
	cfg.Location = time.UTC
	return cfg
}

// gOf converts m/s² to g-units.
func gOf(ms2 float64) float64 { return ms2 / StandardGravity }

type sample struct {
	x, y, z float64
	ts      int64
}

// hold emits n samples of the same reading every step ms after start.
func hold(start, step int64, n int, x, y, z float64) []sample {
	out := make([]sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sample{x: x, y: y, z: z, ts: start + int64(i)*step})
	}
	return out
}

func feed(t *testing.T, e *Engine, samples []sample) {
	t.Helper()
	for _, s := range samples {
		_, ok := e.AddPoint(s.x, s.y, s.z, s.ts)
		require.True(t, ok, "sample at %d dropped", s.ts)
	}
}

// rideUpOneFloor is 2 s at rest, a 2 s accelerate/decelerate ramp covering
// 3.6 m, then 3 s at rest, sampled every 100 ms.
func rideUpOneFloor() []sample { return ride(3.6) }

// ride is rideUpOneFloor covering metres; a negative distance rides down.
func ride(metres float64) []sample {
	a := gOf(metres)
	var out []sample
	out = append(out, hold(0, 100, 21, 0, 0, 1)...)
	out = append(out, hold(2100, 100, 10, 0, 0, 1+a)...)
	out = append(out, hold(3100, 100, 10, 0, 0, 1-a)...)
	out = append(out, hold(4100, 100, 30, 0, 0, 1)...)
	return out
}
