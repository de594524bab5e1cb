// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

// Elevator statuses.
const (
	ElevatorActive      = "active"
	ElevatorMaintenance = "maintenance"
)

// Elevator identifies the car a session is recorded in.
type Elevator struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

// DefaultFleet is the elevator list offered when none is configured.
func DefaultFleet() []Elevator {
	return []Elevator{
		{ID: "1", Name: "Tower A", Code: "ELV-001", Location: "Helsinki Central", Status: ElevatorActive},
		{ID: "2", Name: "Tower B", Code: "ELV-002", Location: "Kosmo One", Status: ElevatorActive},
		{ID: "3", Name: "Office Building", Code: "ELV-003", Location: "Espoo Campus", Status: ElevatorMaintenance},
	}
}
