// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package heatmap turns a stream of accelerometer samples recorded inside an
// elevator car into a vertical heat map (time per floor) and a horizontal
// heat map (movement density inside the car, per floor).
//
// An Engine is safe for one writer and any number of concurrent readers.
// Queries never mutate state and always return copies.
package heatmap

import (
	"fmt"
	"log"
	"math"
	"sync"
)

// Engine is one recording session.
type Engine struct {
	cfg   Config
	namer FloorNamer

	mu         sync.RWMutex
	vertical   *VerticalTracker
	horizontal *HorizontalTracker
	agg        *aggregator
	lastTs     int64
	haveLast   bool
	stats      Stats
}

// NewEngine validates cfg and returns an empty session. A nil namer uses
// DefaultFloorNames.
func NewEngine(cfg Config, namer FloorNamer) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if namer == nil {
		namer = DefaultFloorNames{}
	}
	e := &Engine{cfg: cfg, namer: namer}
	e.clear()
	return e, nil
}

// MustNewEngine is NewEngine for configurations known to be valid.
func MustNewEngine(cfg Config, namer FloorNamer) *Engine {
	e, err := NewEngine(cfg, namer)
	if err != nil {
		panic(fmt.Sprintf("heatmap: %v", err))
	}
	return e
}

func (e *Engine) clear() {
	e.vertical = NewVerticalTracker(e.cfg)
	e.horizontal = NewHorizontalTracker(e.cfg)
	e.agg = newAggregator(e.namer, e.cfg.PathTimeFormat, e.cfg.Location)
	e.lastTs = 0
	e.haveLast = false
	e.stats = Stats{}
}

// AddPoint ingests one sample (g-units, ms timestamp). Non-finite or
// out-of-range samples and non-increasing timestamps are dropped; the
// second return value is false for a dropped sample.
func (e *Engine) AddPoint(x, y, z float64, ts int64) (Point, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.validSample(x, y, z) {
		e.stats.DroppedInvalid++
		return Point{}, false
	}
	if e.haveLast && ts <= e.lastTs {
		e.stats.DroppedOutOfOrder++
		return Point{}, false
	}
	if !e.haveLast {
		log.Printf("heatmap: session started at %d", ts)
	}
	e.lastTs = ts
	e.haveLast = true

	from := e.vertical.Floor()
	if e.vertical.Update(z, ts) {
		log.Printf("heatmap: floor commit %d -> %d at %d", from, e.vertical.Floor(), ts)
	}
	nx, ny, intensity := e.horizontal.Update(x, y, z, ts)

	p := Point{
		Floor:       e.vertical.Floor(),
		Timestamp:   ts,
		NormalizedX: nx,
		NormalizedY: ny,
		Intensity:   intensity,
	}
	e.agg.record(p)

	e.stats.Accepted++
	e.stats.CurrentFloor = p.Floor
	e.stats.LastCommitAt = e.vertical.LastCommitAt()
	return p, true
}

func (e *Engine) validSample(x, y, z float64) bool {
	for _, v := range [3]float64{x, y, z} {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > e.cfg.MaxAccel {
			return false
		}
	}
	return true
}

// Reset returns the engine to the empty session.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clear()
}

// CurrentFloor returns the committed floor of the last accepted sample.
func (e *Engine) CurrentFloor() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vertical.Floor()
}

// Stats returns the ingestion counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// SummaryStats returns Summary and Stats taken under the same read lock, so
// Summary.TotalPoints always equals Stats.Accepted.
func (e *Engine) SummaryStats() (Summary, Stats) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.summary(), e.stats
}

// VerticalHeatmap returns the dwell time of every visited floor, ascending
// by floor index.
func (e *Engine) VerticalHeatmap() []FloorDwell {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.verticalHeatmap()
}

// FloorHeatmap returns the points recorded on floor in arrival order. An
// unvisited floor yields an empty slice.
func (e *Engine) FloorHeatmap(floor int) []HeatPoint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.floorHeatmap(floor)
}

// WorkflowAnalysis returns visited floors by descending dwell time, ties
// broken by ascending floor index.
func (e *Engine) WorkflowAnalysis() []FloorDwell {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.workflowAnalysis()
}

// Summary returns the session totals.
func (e *Engine) Summary() Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.summary()
}

// Path returns the chronological floor visits numbered 1..N.
func (e *Engine) Path() []PathStep {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.pathSteps()
}

// Points returns a copy of the point log.
func (e *Engine) Points() []Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Point{}, e.agg.points...)
}

// Snapshot returns every query result under one read lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Vertical:   e.agg.verticalHeatmap(),
		Horizontal: e.agg.horizontal(),
		Summary:    e.agg.summary(),
		Analysis:   e.agg.workflowAnalysis(),
		Path:       e.agg.pathSteps(),
	}
}
