// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/liftheat/internal/heatmap"
	"github.com/relabs-tech/liftheat/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WebSocket message types
type WSMessage struct {
	Action string `json:"action"` // status, snapshot, floor, reset
	Floor  int    `json:"floor,omitempty"`
}

type WSResponse struct {
	Type     string               `json:"type"` // status, snapshot, floor, reset, error
	Status   *session.Status      `json:"status,omitempty"`
	Vertical []heatmap.FloorDwell `json:"vertical,omitempty"`
	Floor    *int                 `json:"floor,omitempty"`
	Points   []heatmap.HeatPoint  `json:"points,omitempty"`
	Snapshot *heatmap.Snapshot    `json:"snapshot,omitempty"`
	Message  string               `json:"message,omitempty"`
}

// LiveSession is one websocket client watching the engine.
type LiveSession struct {
	Conn *websocket.Conn
	rec  *session.Recorder
	mu   sync.Mutex // serialises writes
}

func (s *LiveSession) send(resp WSResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Conn.WriteJSON(resp)
}

func (s *LiveSession) sendStatus() error {
	st := s.rec.Status()
	return s.send(WSResponse{
		Type:     "status",
		Status:   &st,
		Vertical: s.rec.Engine().VerticalHeatmap(),
	})
}

func (s *LiveSession) sendError(message string) {
	if err := s.send(WSResponse{Type: "error", Message: message}); err != nil {
		log.Printf("web: live: websocket write error: %v", err)
	}
}

func (s *LiveSession) handle(msg WSMessage) error {
	switch msg.Action {
	case "status":
		return s.sendStatus()

	case "snapshot":
		snap := s.rec.Engine().Snapshot()
		return s.send(WSResponse{Type: "snapshot", Snapshot: &snap})

	case "floor":
		floor := msg.Floor
		return s.send(WSResponse{
			Type:   "floor",
			Floor:  &floor,
			Points: s.rec.Engine().FloorHeatmap(floor),
		})

	case "reset":
		if err := s.rec.ResetIdle(); err != nil {
			s.sendError(err.Error())
			return nil
		}
		log.Println("web: live: engine reset by client")
		return s.send(WSResponse{Type: "reset"})

	default:
		s.sendError("unknown action: " + msg.Action)
		return nil
	}
}

// handleLiveWS streams status and the vertical heat map to the client and
// answers its requests.
func (ws *WebServer) handleLiveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: live: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	live := &LiveSession{Conn: conn, rec: ws.rec}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(ws.livePushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := live.sendStatus(); err != nil {
					return
				}
			}
		}
	}()

	// Main message loop
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("web: live: websocket read error: %v", err)
			}
			return
		}
		if err := live.handle(msg); err != nil {
			log.Printf("web: live: websocket write error: %v", err)
			return
		}
	}
}
