// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/liftheat/internal/accel"
	"github.com/relabs-tech/liftheat/internal/heatmap"
)

// Session statuses.
const (
	StatusRecording = "recording"
	StatusCompleted = "completed"
)

var (
	ErrAlreadyRecording = errors.New("a session is already recording")
	ErrNotRecording     = errors.New("no session is recording")
	ErrUnknownElevator  = errors.New("unknown elevator")
)

// Session is one maintenance visit. Heatmap is set when it completes.
type Session struct {
	ID         string            `json:"id"`
	Elevator   Elevator          `json:"elevator"`
	Technician string            `json:"technician"`
	StartedAt  time.Time         `json:"startedAt"`
	EndedAt    *time.Time        `json:"endedAt,omitempty"`
	Status     string            `json:"status"`
	Heatmap    *heatmap.Snapshot `json:"heatmap,omitempty"`
}

// Status is the live state published while recording.
type Status struct {
	Recording    bool            `json:"recording"`
	SessionID    string          `json:"sessionId,omitempty"`
	ElevatorCode string          `json:"elevatorCode,omitempty"`
	CurrentFloor int             `json:"currentFloor"`
	FloorName    string          `json:"floorName"`
	Summary      heatmap.Summary `json:"summary"`
	Stats        heatmap.Stats   `json:"stats"`
}

// Recorder drives one engine through start/feed/finish cycles. Samples fed
// while no session is recording are ignored.
type Recorder struct {
	engine *heatmap.Engine
	namer  heatmap.FloorNamer
	fleet  map[string]Elevator
	order  []string
	now    func() time.Time

	mu      sync.Mutex
	current *Session
}

// NewRecorder wraps engine. namer must match the one the engine uses.
func NewRecorder(engine *heatmap.Engine, namer heatmap.FloorNamer, fleet []Elevator) *Recorder {
	if namer == nil {
		namer = heatmap.DefaultFloorNames{}
	}
	r := &Recorder{
		engine: engine,
		namer:  namer,
		fleet:  make(map[string]Elevator, len(fleet)),
		now:    time.Now,
	}
	for _, e := range fleet {
		r.fleet[e.ID] = e
		r.order = append(r.order, e.ID)
	}
	return r
}

// Engine exposes the engine for live queries.
func (r *Recorder) Engine() *heatmap.Engine { return r.engine }

// Elevators returns the fleet in configured order.
func (r *Recorder) Elevators() []Elevator {
	out := make([]Elevator, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.fleet[id])
	}
	return out
}

// Start resets the engine and opens a new session.
func (r *Recorder) Start(elevatorID, technician string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return Session{}, ErrAlreadyRecording
	}
	elevator, ok := r.fleet[elevatorID]
	if !ok {
		return Session{}, fmt.Errorf("%w: %q", ErrUnknownElevator, elevatorID)
	}

	r.engine.Reset()
	r.current = &Session{
		ID:         uuid.New().String(),
		Elevator:   elevator,
		Technician: technician,
		StartedAt:  r.now(),
		Status:     StatusRecording,
	}
	log.Printf("session: %s started on %s by %q", r.current.ID, elevator.Code, technician)
	return *r.current, nil
}

// Feed forwards a sample to the engine. It reports whether the sample was
// recorded. The session lock is held across the engine call, so a sample
// never lands after Finish took its snapshot or before Start reset the engine.
func (r *Recorder) Feed(s accel.Sample) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return false
	}

	_, ok := r.engine.AddPoint(s.X, s.Y, s.Z, s.Timestamp)
	return ok
}

// ResetIdle clears the engine between sessions. It fails with
// ErrAlreadyRecording while a session is open.
func (r *Recorder) ResetIdle() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return ErrAlreadyRecording
	}
	r.engine.Reset()
	return nil
}

// Finish closes the current session and returns it with its snapshot.
func (r *Recorder) Finish() (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return Session{}, ErrNotRecording
	}

	snap := r.engine.Snapshot()
	ended := r.now()
	done := *r.current
	done.EndedAt = &ended
	done.Status = StatusCompleted
	done.Heatmap = &snap
	r.current = nil

	log.Printf("session: %s completed: %.1fs, %d floors, %d points",
		done.ID, snap.Summary.Duration, snap.Summary.FloorsVisited, snap.Summary.TotalPoints)
	return done, nil
}

// Current returns the recording session, if any.
func (r *Recorder) Current() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Session{}, false
	}
	return *r.current, true
}

// Status reports the live state for displays.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	var st Status
	st.Summary, st.Stats = r.engine.SummaryStats()
	st.CurrentFloor = st.Stats.CurrentFloor
	st.FloorName = r.namer.FloorName(st.CurrentFloor)

	if r.current != nil {
		st.Recording = true
		st.SessionID = r.current.ID
		st.ElevatorCode = r.current.Elevator.Code
	}
	return st
}
