// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package heatmap

import "fmt"

// FloorNamer maps a relative floor index to a label.
type FloorNamer interface {
	FloorName(floor int) string
}

// FloorNamerFunc adapts a function to FloorNamer.
type FloorNamerFunc func(floor int) string

func (f FloorNamerFunc) FloorName(floor int) string { return f(floor) }

// DefaultFloorNames labels floors "Floor N"; floor 0 uses GroundLabel when set.
type DefaultFloorNames struct {
	GroundLabel string
}

func (n DefaultFloorNames) FloorName(floor int) string {
	if floor == 0 && n.GroundLabel != "" {
		return n.GroundLabel
	}
	return fmt.Sprintf("Floor %d", floor)
}
