// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heatmap

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, DefaultFloorNames{GroundLabel: "Ground"})
	require.NoError(t, err)
	return e
}

func TestNewEngine_RejectsNonPositiveDimensions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero floor height", func(c *Config) { c.FloorHeight = 0 }},
		{"negative floor height", func(c *Config) { c.FloorHeight = -3 }},
		{"zero car width", func(c *Config) { c.CarWidth = 0 }},
		{"negative car depth", func(c *Config) { c.CarDepth = -1 }},
		{"zero calibration", func(c *Config) { c.CalibrationMax = 0 }},
		{"nan floor height", func(c *Config) { c.FloorHeight = math.NaN() }},
		{"negative hysteresis", func(c *Config) { c.Hysteresis = -1 }},
		{"negative tau", func(c *Config) { c.PositionTau = -1 }},
		{"negative baseline tau", func(c *Config) { c.BaselineTau = -1 }},
		{"commit ratio at half", func(c *Config) { c.CommitRatio = 0.5 }},
		{"commit ratio above one", func(c *Config) { c.CommitRatio = 1.1 }},
		{"negative rest window", func(c *Config) { c.RestWindow = -1 }},
		{"zero rest band", func(c *Config) { c.RestBand = 0 }},
		{"nan rest velocity", func(c *Config) { c.RestVelocity = math.NaN() }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			_, err := NewEngine(cfg, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestMustNewEngine_Panics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CarWidth = 0
	assert.Panics(t, func() { MustNewEngine(cfg, nil) })
}

func TestEngine_EmptySessionDefaults(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	assert.Empty(t, e.VerticalHeatmap())
	assert.Empty(t, e.FloorHeatmap(0))
	assert.Empty(t, e.WorkflowAnalysis())
	assert.Empty(t, e.Path())
	assert.Equal(t, Summary{}, e.Summary())
	assert.Equal(t, 0, e.CurrentFloor())

	snap := e.Snapshot()
	assert.Empty(t, snap.Vertical)
	assert.Empty(t, snap.Horizontal)
	assert.Empty(t, snap.Path)
}

func TestEngine_RideUpOneFloor(t *testing.T) {
	e := newTestEngine(t, shippedConfig())
	feed(t, e, rideUpOneFloor())

	// The ramp is charged to floor 0 until the commit at 3.4 s.
	vertical := e.VerticalHeatmap()
	require.Len(t, vertical, 2)
	assert.Equal(t, 0, vertical[0].Floor)
	assert.Equal(t, "Ground", vertical[0].FloorName)
	assert.InDelta(t, 3.4, vertical[0].Duration, 1e-9)
	assert.Equal(t, 1, vertical[1].Floor)
	assert.Equal(t, "Floor 1", vertical[1].FloorName)
	assert.InDelta(t, 3.6, vertical[1].Duration, 1e-9)
	assert.GreaterOrEqual(t, vertical[0].Duration, 2.0)
	assert.GreaterOrEqual(t, vertical[1].Duration, 3.0)

	summary := e.Summary()
	assert.InDelta(t, 7.0, summary.Duration, 1e-9)
	assert.Equal(t, 2, summary.FloorsVisited)
	assert.Equal(t, 71, summary.TotalPoints)

	path := e.Path()
	require.Len(t, path, 2)
	assert.Equal(t, 1, path[0].Order)
	assert.Equal(t, 0, path[0].Floor)
	assert.Equal(t, "00:00:00", path[0].Time)
	assert.InDelta(t, 3.4, path[0].Duration, 1e-9)
	assert.Equal(t, 2, path[1].Order)
	assert.Equal(t, 1, path[1].Floor)
	assert.Equal(t, int64(3400), path[1].EnteredAt)
	assert.Equal(t, "00:00:03", path[1].Time)
	assert.InDelta(t, 3.6, path[1].Duration, 1e-9)

	analysis := e.WorkflowAnalysis()
	require.Len(t, analysis, 2)
	assert.Equal(t, 1, analysis[0].Floor)
	assert.Equal(t, 0, analysis[1].Floor)

	assert.Equal(t, 1, e.CurrentFloor())
	assert.Len(t, e.FloorHeatmap(0), 34)
	assert.Len(t, e.FloorHeatmap(1), 37)
	assert.Empty(t, e.FloorHeatmap(7))
	assert.Empty(t, e.FloorHeatmap(-1))
}

func TestEngine_RideOfOneFloorHeight(t *testing.T) {
	e := newTestEngine(t, shippedConfig())
	feed(t, e, ride(3.0))

	path := e.Path()
	require.Len(t, path, 2)
	assert.Equal(t, 0, path[0].Floor)
	assert.Equal(t, 1, path[1].Floor)
	assert.Equal(t, int64(3500), path[1].EnteredAt)

	// equal dwell: the lower floor comes first
	analysis := e.WorkflowAnalysis()
	require.Len(t, analysis, 2)
	assert.InDelta(t, 3.5, analysis[0].Duration, 1e-9)
	assert.InDelta(t, 3.5, analysis[1].Duration, 1e-9)
	assert.Equal(t, []int{0, 1}, []int{analysis[0].Floor, analysis[1].Floor})
}

func TestEngine_SpikeLeavesSingleStep(t *testing.T) {
	cfg := shippedConfig()
	cfg.FloorHeight = 0.3
	e := newTestEngine(t, cfg)

	// the displacement passes the commit threshold for one sample only
	a := gOf(40)
	var seq []sample
	seq = append(seq, hold(0, 100, 21, 0, 0, 1)...)
	seq = append(seq,
		sample{z: 1 + a, ts: 2100},
		sample{z: 1 - 2*a, ts: 2200},
		sample{z: 1 + a, ts: 2300},
	)
	seq = append(seq, hold(2400, 100, 20, 0, 0, 1)...)
	feed(t, e, seq)

	assert.Len(t, e.Path(), 1)
	assert.Equal(t, 1, e.Summary().FloorsVisited)
	assert.Equal(t, 0, e.CurrentFloor())
}

func TestEngine_StillDeviceStaysOnOneFloor(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tests := []struct {
		name    string
		reading func() (x, y, z float64)
	}{
		{"sensor bias", func() (float64, float64, float64) { return 0, 0, 1.005 }},
		{"tilted device", func() (float64, float64, float64) { return 0.14, 0, 0.99 }},
		{"sensor noise", func() (float64, float64, float64) {
			return rng.NormFloat64() * 0.005, rng.NormFloat64() * 0.005, 1 + rng.NormFloat64()*0.005
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t, shippedConfig())

			// ten minutes at 300 ms after a level start
			_, ok := e.AddPoint(0, 0, 1, 0)
			require.True(t, ok)
			for ts := int64(300); ts <= 600_000; ts += 300 {
				x, y, z := tc.reading()
				_, ok := e.AddPoint(x, y, z, ts)
				require.True(t, ok)
			}

			assert.Len(t, e.Path(), 1)
			assert.Equal(t, 1, e.Summary().FloorsVisited)
			assert.Equal(t, 0, e.CurrentFloor())
		})
	}
}

func TestEngine_PathOpenStepGrowsWithoutQueriesMutating(t *testing.T) {
	e := newTestEngine(t, exactConfig())
	feed(t, e, hold(0, 300, 5, 0, 0, 1))

	first := e.Path()
	require.Len(t, first, 1)
	assert.InDelta(t, 1.2, first[0].Duration, 1e-9)
	assert.Equal(t, first, e.Path())

	feed(t, e, hold(1500, 300, 2, 0, 0, 1))
	assert.InDelta(t, 1.8, e.Path()[0].Duration, 1e-9)
	// the earlier result is a copy
	assert.InDelta(t, 1.2, first[0].Duration, 1e-9)
}

func TestEngine_WorkflowAnalysisOrdering(t *testing.T) {
	cfg := exactConfig()
	cfg.FloorHeight = 1
	cfg.Hysteresis = 0
	e := newTestEngine(t, cfg)

	up := gOf(1.5)
	down := gOf(2.0)
	var seq []sample
	seq = append(seq, hold(0, 1000, 3, 0, 0, 1)...)
	seq = append(seq, sample{z: 1 + up, ts: 3000}) // v=0.75, d=0.75
	seq = append(seq, sample{z: 1 - up, ts: 4000}) // d=1.5, floor 1
	seq = append(seq, hold(5000, 1000, 2, 0, 0, 1)...)
	seq = append(seq, sample{z: 1 - down, ts: 7000}) // v=-1, d=-0.5
	seq = append(seq, sample{z: 1 + down, ts: 8000}) // d=-1.5, floor 0
	seq = append(seq, hold(9000, 1000, 1, 0, 0, 1)...)
	feed(t, e, seq)

	path := e.Path()
	require.Len(t, path, 3)
	for i, step := range path {
		assert.Equal(t, i+1, step.Order)
		if i > 0 {
			assert.NotEqual(t, path[i-1].Floor, step.Floor)
		}
	}

	vertical := DwellByFloor(e.VerticalHeatmap())
	assert.InDelta(t, 4.0+1.0, vertical[0].Duration, 1e-9)
	assert.InDelta(t, 4.0, vertical[1].Duration, 1e-9)

	analysis := e.WorkflowAnalysis()
	require.Len(t, analysis, 2)
	assert.Equal(t, 0, analysis[0].Floor)
	assert.Equal(t, 1, analysis[1].Floor)
}

func TestEngine_AnalysisTiesBreakByFloor(t *testing.T) {
	a := newAggregator(DefaultFloorNames{}, "", nil)
	a.record(Point{Floor: 2, Timestamp: 0})
	a.record(Point{Floor: -1, Timestamp: 1000})
	a.record(Point{Floor: 0, Timestamp: 2000})
	a.record(Point{Floor: 0, Timestamp: 3000})
	a.record(Point{Floor: 0, Timestamp: 3500})

	// floor 0 has 1.5 s, floors -1 and 2 tie at 1 s
	analysis := a.workflowAnalysis()
	require.Len(t, analysis, 3)
	assert.Equal(t, []int{0, -1, 2}, []int{analysis[0].Floor, analysis[1].Floor, analysis[2].Floor})

	vertical := a.verticalHeatmap()
	assert.Equal(t, []int{-1, 0, 2}, []int{vertical[0].Floor, vertical[1].Floor, vertical[2].Floor})
	assert.Equal(t, 3, a.summary().FloorsVisited)
}

func TestEngine_DropsInvalidAndOutOfOrderSamples(t *testing.T) {
	e := newTestEngine(t, exactConfig())

	_, ok := e.AddPoint(0, 0, 1, 1000)
	require.True(t, ok)

	tests := []struct {
		name    string
		x, y, z float64
		ts      int64
	}{
		{"nan", math.NaN(), 0, 1, 2000},
		{"inf", 0, math.Inf(1), 1, 2000},
		{"beyond range", 0, 0, 40, 2000},
		{"same timestamp", 0, 0, 1, 1000},
		{"earlier timestamp", 0, 0, 1, 500},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := e.Snapshot()
			_, ok := e.AddPoint(tc.x, tc.y, tc.z, tc.ts)
			assert.False(t, ok)
			assert.Equal(t, before, e.Snapshot())
		})
	}

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.Accepted)
	assert.Equal(t, uint64(3), stats.DroppedInvalid)
	assert.Equal(t, uint64(2), stats.DroppedOutOfOrder)

	_, ok = e.AddPoint(0, 0, 1, 1300)
	assert.True(t, ok)
	assert.InDelta(t, 0.3, e.Summary().Duration, 1e-9)
}

func TestEngine_ResetClearsEverything(t *testing.T) {
	e := newTestEngine(t, exactConfig())
	feed(t, e, rideUpOneFloor())
	require.NotEmpty(t, e.Path())

	e.Reset()

	assert.Equal(t, Summary{}, e.Summary())
	assert.Empty(t, e.VerticalHeatmap())
	assert.Empty(t, e.Path())
	assert.Empty(t, e.Points())
	assert.Equal(t, Stats{}, e.Stats())
	assert.Equal(t, 0, e.CurrentFloor())

	// earlier timestamps are accepted again after a reset
	_, ok := e.AddPoint(0, 0, 1, 0)
	assert.True(t, ok)
}

func TestEngine_QueriesAreIdempotent(t *testing.T) {
	e := newTestEngine(t, exactConfig())
	feed(t, e, rideUpOneFloor())

	assert.Equal(t, e.VerticalHeatmap(), e.VerticalHeatmap())
	assert.Equal(t, e.FloorHeatmap(1), e.FloorHeatmap(1))
	assert.Equal(t, e.WorkflowAnalysis(), e.WorkflowAnalysis())
	assert.Equal(t, e.Summary(), e.Summary())
	assert.Equal(t, e.Path(), e.Path())
	assert.Equal(t, e.Snapshot(), e.Snapshot())
}

func TestEngine_RandomWalkInvariants(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	rng := rand.New(rand.NewSource(42))

	ts := int64(1_700_000_000_000)
	first, last := int64(-1), int64(-1)
	for i := 0; i < 4000; i++ {
		x := rng.NormFloat64() * 0.3
		y := rng.NormFloat64() * 0.3
		z := 1 + rng.NormFloat64()*0.6
		if i%97 == 0 {
			x, z = 25, math.NaN()
		}
		if _, ok := e.AddPoint(x, y, z, ts); ok {
			if first < 0 {
				first = ts
			}
			last = ts
		}
		ts += int64(200 + rng.Intn(200))
	}

	snap := e.Snapshot()
	total := float64(last-first) / 1000
	assert.InDelta(t, total, snap.Summary.Duration, 1e-6)

	var dwell float64
	for _, d := range snap.Vertical {
		dwell += d.Duration
	}
	assert.InDelta(t, total, dwell, 1e-6)

	var pathTotal float64
	for i, step := range snap.Path {
		pathTotal += step.Duration
		assert.Equal(t, i+1, step.Order)
		if i > 0 {
			assert.NotEqual(t, snap.Path[i-1].Floor, step.Floor)
		}
	}
	assert.InDelta(t, total, pathTotal, 1e-6)

	points := e.Points()
	assert.Equal(t, snap.Summary.TotalPoints, len(points))
	for i, p := range points {
		if i > 0 {
			assert.Greater(t, p.Timestamp, points[i-1].Timestamp)
		}
		assert.True(t, p.NormalizedX >= 0 && p.NormalizedX <= 1)
		assert.True(t, p.NormalizedY >= 0 && p.NormalizedY <= 1)
		assert.True(t, p.Intensity >= 0 && p.Intensity <= 1)
	}

	var bucketed int
	for _, pts := range snap.Horizontal {
		bucketed += len(pts)
	}
	assert.Equal(t, len(points), bucketed)
}

func TestEngine_ConcurrentReadersSeeConsistentSnapshots(t *testing.T) {
	e := newTestEngine(t, exactConfig())
	samples := rideUpOneFloor()

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for round := 0; round < 20; round++ {
			for _, s := range samples {
				e.AddPoint(s.x, s.y, s.z, s.ts)
			}
			e.Reset()
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := e.Snapshot()
				var dwell, pathTotal float64
				var bucketed int
				for _, d := range snap.Vertical {
					dwell += d.Duration
				}
				for _, s := range snap.Path {
					pathTotal += s.Duration
				}
				for _, pts := range snap.Horizontal {
					bucketed += len(pts)
				}
				assert.InDelta(t, snap.Summary.Duration, dwell, 1e-9)
				assert.InDelta(t, snap.Summary.Duration, pathTotal, 1e-9)
				assert.Equal(t, snap.Summary.TotalPoints, bucketed)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, Summary{}, e.Summary())
}

func TestEngine_SummaryStatsAgreeUnderWrites(t *testing.T) {
	e := newTestEngine(t, shippedConfig())
	samples := rideUpOneFloor()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for round := 0; round < 20; round++ {
			for _, s := range samples {
				e.AddPoint(s.x, s.y, s.z, s.ts)
			}
			e.Reset()
		}
	}()

	for {
		select {
		case <-done:
			summary, stats := e.SummaryStats()
			assert.Equal(t, Summary{}, summary)
			assert.Equal(t, Stats{}, stats)
			return
		default:
		}
		summary, stats := e.SummaryStats()
		assert.Equal(t, summary.TotalPoints, int(stats.Accepted))
	}
}
