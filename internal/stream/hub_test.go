package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/simulation"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop(), nil)
	go hub.Run(ctx)
	require.Eventually(t, hub.started.Load, time.Second, 5*time.Millisecond)

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsDayEvents(t *testing.T) {
	hub, srv := startHub(t)
	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	hub.PublishDay(simulation.DayEvent{
		RunID:       "run-1",
		Date:        time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Instruments: 3,
		Capital:     10_050_000,
	})

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var env struct {
			Type string              `json:"type"`
			Data simulation.DayEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &env))
		assert.Equal(t, TypeDay, env.Type)
		assert.Equal(t, "run-1", env.Data.RunID)
		assert.Equal(t, 3, env.Data.Instruments)
		assert.Equal(t, 10_050_000.0, env.Data.Capital)
	}
}

func TestHub_PublishRun(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.PublishRun(&domain.Run{RunID: "run-9", Status: domain.RunStatusCompleted})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"run"`)
	assert.Contains(t, string(data), `"run-9"`)
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_NotStarted(t *testing.T) {
	hub := NewHub(zerolog.Nop(), nil)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHub_RejectsAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop(), nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	require.Eventually(t, hub.started.Load, time.Second, 5*time.Millisecond)
	cancel()
	<-stopped

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrStopped.Error())

	srv := httptest.NewServer(hub)
	defer srv.Close()
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	if resp != nil {
		resp.Body.Close()
	}
	assert.Equal(t, 0, hub.Clients())
}

func TestHub_FanOutDropsOldestForSlowClient(t *testing.T) {
	hub := NewHub(zerolog.Nop(), nil)
	c := &client{send: make(chan []byte, 2)}
	hub.clients[c] = struct{}{}

	hub.fanOut([]byte("1"))
	hub.fanOut([]byte("2"))
	hub.fanOut([]byte("3"))

	assert.Equal(t, "2", string(<-c.send))
	assert.Equal(t, "3", string(<-c.send))
}
