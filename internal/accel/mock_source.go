// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package accel

import (
	"math"
	"math/rand"
	"time"
)

const (
	restSeconds = 10.0
	rideSeconds = 4.0

	// rideHeight is the distance covered by one mock ride; it matches the
	// default floor height.
	rideHeight = 3.0
)

// rideAccel is the peak car acceleration (m/s²) of a mock ride. One sine
// period of this amplitude over rideSeconds starts and ends at rest and
// covers rideHeight.
var rideAccel = rideHeight * 2 * math.Pi / (rideSeconds * rideSeconds)

// itinerary is the direction of each mock ride; it returns to the start.
var itinerary = []int{1, 1, -1, 1, -1, -1}

type mockSource struct {
	start time.Time
	now   func() time.Time
	rng   *rand.Rand
}

// NewMockSource creates a mock sample source that simulates a technician
// working in a car that rides between floors.
func NewMockSource() Source {
	return newMockSource(time.Now, time.Now().UnixNano())
}

func newMockSource(now func() time.Time, seed int64) *mockSource {
	return &mockSource{start: now(), now: now, rng: rand.New(rand.NewSource(seed))}
}

func (m *mockSource) Next() (Sample, error) {
	t := m.now()
	elapsed := t.Sub(m.start).Seconds()

	return Sample{
		X:         0.04*math.Sin(elapsed*0.5) + m.rng.NormFloat64()*0.01,
		Y:         0.03*math.Cos(elapsed*0.3) + m.rng.NormFloat64()*0.01,
		Z:         1 + rideProfile(elapsed)/9.80665 + m.rng.NormFloat64()*0.005,
		Timestamp: t.UnixMilli(),
	}, nil
}

// rideProfile returns the vertical car acceleration (m/s²) at elapsed
// seconds into the itinerary.
func rideProfile(elapsed float64) float64 {
	cycle := restSeconds + rideSeconds
	n := int(elapsed / cycle)
	into := elapsed - float64(n)*cycle
	if into < restSeconds {
		return 0
	}

	dir := float64(itinerary[n%len(itinerary)])
	return dir * rideAccel * math.Sin(2*math.Pi*(into-restSeconds)/rideSeconds)
}
