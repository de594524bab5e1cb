// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heatmap

// Point is one recorded observation.
type Point struct {
	Floor       int     `json:"floor"`
	Timestamp   int64   `json:"timestamp"` // ms
	NormalizedX float64 `json:"normalizedX"`
	NormalizedY float64 `json:"normalizedY"`
	Intensity   float64 `json:"intensity"`
}

// HeatPoint is the horizontal heat map entry for a floor.
type HeatPoint struct {
	NormalizedX float64 `json:"normalizedX"`
	NormalizedY float64 `json:"normalizedY"`
	Intensity   float64 `json:"intensity"`
}

// FloorRecord is the dwell state kept per visited floor.
type FloorRecord struct {
	FloorIndex    int     `json:"floorIndex"`
	FloorName     string  `json:"floorName"`
	TotalDuration float64 `json:"totalDuration"` // seconds
	LastSeenAt    int64   `json:"lastSeenAt"`    // ms
}

// FloorDwell is the time spent on one floor, as reported by the
// vertical heat map and the workflow analysis.
type FloorDwell struct {
	Floor     int     `json:"floor"`
	FloorName string  `json:"floorName"`
	Duration  float64 `json:"duration"` // seconds
}

// PathStep is one contiguous stay on a floor.
type PathStep struct {
	Order     int     `json:"order"`
	Floor     int     `json:"floor"`
	FloorName string  `json:"floorName"`
	EnteredAt int64   `json:"enteredAt"` // ms
	Time      string  `json:"time"`
	Duration  float64 `json:"duration"` // seconds
}

// Summary holds the session totals.
type Summary struct {
	Duration      float64 `json:"duration"` // seconds
	FloorsVisited int     `json:"floorsVisited"`
	TotalPoints   int     `json:"totalPoints"`
}

// Snapshot bundles every query result, taken atomically.
type Snapshot struct {
	Vertical   []FloorDwell        `json:"vertical"`
	Horizontal map[int][]HeatPoint `json:"horizontal"`
	Summary    Summary             `json:"summary"`
	Analysis   []FloorDwell        `json:"analysis"`
	Path       []PathStep          `json:"path"`
}

// Stats reports ingestion counters and the live floor.
type Stats struct {
	Accepted          uint64 `json:"accepted"`
	DroppedInvalid    uint64 `json:"droppedInvalid"`
	DroppedOutOfOrder uint64 `json:"droppedOutOfOrder"`
	CurrentFloor      int    `json:"currentFloor"`
	LastCommitAt      int64  `json:"lastCommitAt"`
}

// DwellByFloor indexes a vertical heat map by floor.
func DwellByFloor(v []FloorDwell) map[int]FloorDwell {
	out := make(map[int]FloorDwell, len(v))
	for _, d := range v {
		out[d.Floor] = d
	}
	return out
}
