package app

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/liftheat/internal/session"
)

func dialLive(t *testing.T, ws *WebServer) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ws.Routes())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg WSMessage) WSResponse {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var resp WSResponse
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestLiveWS_Requests(t *testing.T) {
	ws := newTestWebServer(t)
	ws.livePushInterval = time.Hour

	_, err := ws.rec.Start("1", "Aino")
	require.NoError(t, err)
	feedRest(ws, 0, 4)

	conn := dialLive(t, ws)

	resp := roundTrip(t, conn, WSMessage{Action: "status"})
	assert.Equal(t, "status", resp.Type)
	require.NotNil(t, resp.Status)
	assert.True(t, resp.Status.Recording)
	assert.Equal(t, 4, resp.Status.Summary.TotalPoints)
	require.Len(t, resp.Vertical, 1)

	resp = roundTrip(t, conn, WSMessage{Action: "floor", Floor: 0})
	assert.Equal(t, "floor", resp.Type)
	require.NotNil(t, resp.Floor)
	assert.Equal(t, 0, *resp.Floor)
	assert.Len(t, resp.Points, 4)

	resp = roundTrip(t, conn, WSMessage{Action: "snapshot"})
	assert.Equal(t, "snapshot", resp.Type)
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, 4, resp.Snapshot.Summary.TotalPoints)

	// reset is refused while recording
	resp = roundTrip(t, conn, WSMessage{Action: "reset"})
	assert.Equal(t, "error", resp.Type)
	assert.Equal(t, session.ErrAlreadyRecording.Error(), resp.Message)
	assert.Equal(t, 4, ws.rec.Engine().Summary().TotalPoints)

	_, err = ws.rec.Finish()
	require.NoError(t, err)
	resp = roundTrip(t, conn, WSMessage{Action: "reset"})
	assert.Equal(t, "reset", resp.Type)
	assert.Equal(t, 0, ws.rec.Engine().Summary().TotalPoints)

	resp = roundTrip(t, conn, WSMessage{Action: "dance"})
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Message, "dance")
}

func TestLiveWS_PushesStatus(t *testing.T) {
	ws := newTestWebServer(t)
	ws.livePushInterval = 20 * time.Millisecond

	conn := dialLive(t, ws)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var resp WSResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "status", resp.Type)
	require.NotNil(t, resp.Status)
	assert.False(t, resp.Status.Recording)
}
