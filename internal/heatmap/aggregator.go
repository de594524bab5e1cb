// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heatmap

import (
	"cmp"
	"slices"
	"time"
)

type pathEntry struct {
	floor     int
	enteredAt int64   // ms
	duration  float64 // seconds
}

// aggregator owns dwell time, the point log and the visit path. Every
// query is a read-only projection that copies out of the internal state.
type aggregator struct {
	namer      FloorNamer
	timeLayout string
	loc        *time.Location

	started      bool
	startedAt    int64
	lastAt       int64
	currentFloor int

	points     []Point
	byFloor    map[int][]HeatPoint
	floors     map[int]*FloorRecord
	floorOrder []int // ascending floor indices
	path       []pathEntry
}

func newAggregator(namer FloorNamer, timeLayout string, loc *time.Location) *aggregator {
	if loc == nil {
		loc = time.Local
	}
	if timeLayout == "" {
		timeLayout = time.TimeOnly
	}
	return &aggregator{
		namer:      namer,
		timeLayout: timeLayout,
		loc:        loc,
		byFloor:    make(map[int][]HeatPoint),
		floors:     make(map[int]*FloorRecord),
	}
}

// record appends p. Time since the previous point is charged to the floor
// that was current during it, so dwell and path totals match the span
// between the first and last point exactly.
func (a *aggregator) record(p Point) {
	if !a.started {
		a.started = true
		a.startedAt = p.Timestamp
		a.lastAt = p.Timestamp
		a.currentFloor = p.Floor
		a.ensureFloor(p.Floor, p.Timestamp)
		a.path = append(a.path, pathEntry{floor: p.Floor, enteredAt: p.Timestamp})
		a.appendPoint(p)
		return
	}

	elapsed := float64(p.Timestamp-a.lastAt) / 1000
	prev := a.floors[a.currentFloor]
	prev.TotalDuration += elapsed
	prev.LastSeenAt = p.Timestamp
	a.path[len(a.path)-1].duration += elapsed

	if p.Floor != a.currentFloor {
		a.ensureFloor(p.Floor, p.Timestamp)
		a.path = append(a.path, pathEntry{floor: p.Floor, enteredAt: p.Timestamp})
		a.currentFloor = p.Floor
	}
	a.floors[p.Floor].LastSeenAt = p.Timestamp
	a.lastAt = p.Timestamp
	a.appendPoint(p)
}

func (a *aggregator) appendPoint(p Point) {
	a.points = append(a.points, p)
	a.byFloor[p.Floor] = append(a.byFloor[p.Floor], HeatPoint{
		NormalizedX: p.NormalizedX,
		NormalizedY: p.NormalizedY,
		Intensity:   p.Intensity,
	})
}

func (a *aggregator) ensureFloor(floor int, ts int64) {
	if _, ok := a.floors[floor]; ok {
		return
	}
	a.floors[floor] = &FloorRecord{
		FloorIndex: floor,
		FloorName:  a.namer.FloorName(floor),
		LastSeenAt: ts,
	}
	i, _ := slices.BinarySearch(a.floorOrder, floor)
	a.floorOrder = slices.Insert(a.floorOrder, i, floor)
}

func (a *aggregator) verticalHeatmap() []FloorDwell {
	out := make([]FloorDwell, 0, len(a.floorOrder))
	for _, f := range a.floorOrder {
		rec := a.floors[f]
		out = append(out, FloorDwell{Floor: f, FloorName: rec.FloorName, Duration: rec.TotalDuration})
	}
	return out
}

func (a *aggregator) floorHeatmap(floor int) []HeatPoint {
	return append([]HeatPoint{}, a.byFloor[floor]...)
}

func (a *aggregator) horizontal() map[int][]HeatPoint {
	out := make(map[int][]HeatPoint, len(a.byFloor))
	for f := range a.byFloor {
		out[f] = a.floorHeatmap(f)
	}
	return out
}

func (a *aggregator) workflowAnalysis() []FloorDwell {
	out := a.verticalHeatmap()
	slices.SortStableFunc(out, func(x, y FloorDwell) int {
		if c := cmp.Compare(y.Duration, x.Duration); c != 0 {
			return c
		}
		return cmp.Compare(x.Floor, y.Floor)
	})
	return out
}

func (a *aggregator) summary() Summary {
	s := Summary{TotalPoints: len(a.points)}
	if !a.started {
		return s
	}
	s.Duration = float64(a.lastAt-a.startedAt) / 1000
	for _, rec := range a.floors {
		if rec.TotalDuration > 0 {
			s.FloorsVisited++
		}
	}
	return s
}

// pathSteps numbers the steps at query time. The open step already carries
// its duration up to the last point.
func (a *aggregator) pathSteps() []PathStep {
	out := make([]PathStep, 0, len(a.path))
	for i, e := range a.path {
		out = append(out, PathStep{
			Order:     i + 1,
			Floor:     e.floor,
			FloorName: a.floors[e.floor].FloorName,
			EnteredAt: e.enteredAt,
			Time:      time.UnixMilli(e.enteredAt).In(a.loc).Format(a.timeLayout),
			Duration:  e.duration,
		})
	}
	return out
}
