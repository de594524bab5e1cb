// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/liftheat/internal/accel"
	"github.com/relabs-tech/liftheat/internal/config"
	"github.com/relabs-tech/liftheat/internal/heatmap"
	"github.com/relabs-tech/liftheat/internal/session"
	"github.com/relabs-tech/liftheat/internal/store"
)

// SessionStore persists completed sessions.
type SessionStore interface {
	Save(sess *session.Session) error
	Get(id string) (*session.Session, error)
	List(limit int) ([]store.Listing, error)
}

// WebServer serves the live engine and stored sessions over HTTP.
type WebServer struct {
	rec   *session.Recorder
	store SessionStore

	// livePushInterval paces websocket status pushes.
	livePushInterval time.Duration
}

// NewWebServer builds the HTTP layer around a recorder and a store.
func NewWebServer(rec *session.Recorder, st SessionStore) *WebServer {
	return &WebServer{
		rec:              rec,
		store:            st,
		livePushInterval: time.Second,
	}
}

// Routes registers every endpoint on a new mux.
func (ws *WebServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/elevators", ws.handleElevators)
	mux.HandleFunc("GET /api/status", ws.handleStatus)

	mux.HandleFunc("POST /api/sessions/start", ws.handleStart)
	mux.HandleFunc("POST /api/sessions/stop", ws.handleStop)
	mux.HandleFunc("GET /api/sessions", ws.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", ws.handleGetSession)

	mux.HandleFunc("GET /api/live/summary", ws.handleLiveSummary)
	mux.HandleFunc("GET /api/live/vertical", ws.handleLiveVertical)
	mux.HandleFunc("GET /api/live/floors/{floor}", ws.handleLiveFloor)
	mux.HandleFunc("GET /api/live/analysis", ws.handleLiveAnalysis)
	mux.HandleFunc("GET /api/live/path", ws.handleLivePath)
	mux.HandleFunc("GET /api/live/snapshot", ws.handleLiveSnapshot)

	mux.HandleFunc("GET /charts/vertical", ws.handleVerticalChart)
	mux.HandleFunc("GET /charts/floors/{floor}", ws.handleFloorChart)

	mux.HandleFunc("/ws/live", ws.handleLiveWS)

	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// HandleSample decodes one samples-topic payload and feeds it to the
// recorder.
func (ws *WebServer) HandleSample(payload []byte) {
	var s accel.Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		log.Printf("web: sample unmarshal error: %v", err)
		return
	}
	ws.rec.Feed(s)
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	ws.writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrAlreadyRecording), errors.Is(err, session.ErrNotRecording):
		return http.StatusConflict
	case errors.Is(err, session.ErrUnknownElevator):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (ws *WebServer) handleElevators(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.rec.Elevators())
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.rec.Status())
}

type startRequest struct {
	ElevatorID string `json:"elevatorId"`
	Technician string `json:"technician"`
}

func (ws *WebServer) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.ElevatorID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "elevatorId is required")
		return
	}

	sess, err := ws.rec.Start(req.ElevatorID, req.Technician)
	if err != nil {
		ws.writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	ws.writeJSON(w, http.StatusCreated, sess)
}

func (ws *WebServer) handleStop(w http.ResponseWriter, r *http.Request) {
	sess, err := ws.rec.Finish()
	if err != nil {
		ws.writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	if err := ws.store.Save(&sess); err != nil {
		log.Printf("web: store: save session %s: %v", sess.ID, err)
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("session completed but not saved: %v", err))
		return
	}
	ws.writeJSON(w, http.StatusOK, sess)
}

func (ws *WebServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	list, err := ws.store.List(limit)
	if err != nil {
		ws.writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	if list == nil {
		list = []store.Listing{}
	}
	ws.writeJSON(w, http.StatusOK, list)
}

func (ws *WebServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := ws.store.Get(r.PathValue("id"))
	if err != nil {
		ws.writeJSONError(w, errorStatus(err), err.Error())
		return
	}
	ws.writeJSON(w, http.StatusOK, sess)
}

func (ws *WebServer) handleLiveSummary(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.rec.Engine().Summary())
}

func (ws *WebServer) handleLiveVertical(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.rec.Engine().VerticalHeatmap())
}

func parseFloor(r *http.Request) (int, error) {
	v := r.PathValue("floor")
	floor, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid floor %q", v)
	}
	return floor, nil
}

func (ws *WebServer) handleLiveFloor(w http.ResponseWriter, r *http.Request) {
	floor, err := parseFloor(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	ws.writeJSON(w, http.StatusOK, ws.rec.Engine().FloorHeatmap(floor))
}

func (ws *WebServer) handleLiveAnalysis(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.rec.Engine().WorkflowAnalysis())
}

func (ws *WebServer) handleLivePath(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.rec.Engine().Path())
}

func (ws *WebServer) handleLiveSnapshot(w http.ResponseWriter, r *http.Request) {
	ws.writeJSON(w, http.StatusOK, ws.rec.Engine().Snapshot())
}

// snapshotFor returns the stored snapshot named by ?session=, or the live
// one, with a label for chart titles.
func (ws *WebServer) snapshotFor(r *http.Request) (heatmap.Snapshot, string, error) {
	id := r.URL.Query().Get("session")
	if id == "" {
		return ws.rec.Engine().Snapshot(), "live", nil
	}

	sess, err := ws.store.Get(id)
	if err != nil {
		return heatmap.Snapshot{}, "", err
	}
	if sess.Heatmap == nil {
		return heatmap.Snapshot{}, "", fmt.Errorf("%w: session %s has no heat map", store.ErrNotFound, id)
	}
	return *sess.Heatmap, fmt.Sprintf("%s %s", sess.Elevator.Code, sess.StartedAt.Format(time.RFC3339)), nil
}

// publishStatus publishes the recorder status on every tick until stop
// closes.
func publishStatus(rec *session.Recorder, topic string, ticks <-chan time.Time, stop <-chan struct{}, publish publishFunc) {
	for {
		select {
		case <-stop:
			return
		case <-ticks:
		}

		payload, err := json.Marshal(rec.Status())
		if err != nil {
			log.Printf("web: status marshal error: %v", err)
			continue
		}
		if err := publish(topic, payload); err != nil {
			log.Printf("web: MQTT publish error (%s): %v", topic, err)
		}
	}
}

// RunWeb subscribes to the samples topic, records sessions and serves the
// HTTP API on WEB_SERVER_PORT.
func RunWeb() error {
	cfg := config.Get()

	engine, err := heatmap.NewEngine(cfg.Heatmap(), cfg.FloorNames())
	if err != nil {
		return err
	}
	rec := session.NewRecorder(engine, cfg.FloorNames(), session.DefaultFleet())

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()
	log.Printf("web: session store at %s", cfg.DBPath)

	ws := NewWebServer(rec, st)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicSamples, 0, func(_ mqtt.Client, msg mqtt.Message) {
		ws.HandleSample(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicSamples)

	statusTicker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer statusTicker.Stop()
	stop := make(chan struct{})
	defer close(stop)
	go publishStatus(rec, cfg.TopicStatus, statusTicker.C, stop, mqttPublisher(client, true))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, ws.Routes())
}
