// Package stream fans simulation progress out to websocket clients.
//
// The hub follows the single-owner actor model: one goroutine owns the client
// set and all registration and broadcast requests arrive over channels.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"opening-trade-lab/internal/domain"
	"opening-trade-lab/internal/observability"
	"opening-trade-lab/internal/simulation"
)

// Message types
const (
	TypeDay = "day"
	TypeRun = "run"
)

const (
	clientBuffer = 64
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
)

// ErrNotStarted is returned by ServeHTTP before Run has been called.
var ErrNotStarted = errors.New("stream hub not started")

// ErrStopped is returned to clients connecting after Run has returned.
var ErrStopped = errors.New("stream hub stopped")

// Envelope is the wire format of every message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts run events to connected clients.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}        // closed when Run returns
	clients    map[*client]struct{} // owned by the Run goroutine
	count      atomic.Int64
	started    atomic.Bool

	upgrader websocket.Upgrader
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewHub creates a hub. metrics may be nil.
func NewHub(logger zerolog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		// unbuffered: a send completes only while Run is receiving
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger.With().Str("component", "stream").Logger(),
		metrics: metrics,
	}
}

// Run owns the client set until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	defer func() {
		for c := range h.clients {
			h.drop(c)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("stream hub stopped")
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount()
		case c := <-h.unregister:
			h.drop(c)
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	h.metrics.SetStreamClients(len(h.clients))
}

// fanOut delivers msg to every client. A full client buffer loses its oldest message.
func (h *Hub) fanOut(msg []byte) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			select {
			case <-c.send:
			default:
			}
			select {
			case c.send <- msg:
			default:
			}
			h.logger.Debug().Msg("slow stream client, dropped oldest message")
		}
	}
	h.metrics.RecordStreamMessage()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Publish encodes and queues a message. Never blocks; a full queue drops the message.
func (h *Hub) Publish(kind string, data any) error {
	msg, err := json.Marshal(Envelope{Type: kind, Data: data})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn().Str("type", kind).Msg("stream queue full, message dropped")
	}
	return nil
}

// PublishDay implements simulation.Observer.
func (h *Hub) PublishDay(ev simulation.DayEvent) {
	if err := h.Publish(TypeDay, ev); err != nil {
		h.logger.Error().Err(err).Msg("encode day event")
	}
}

// PublishRun announces a run's terminal state.
func (h *Hub) PublishRun(run *domain.Run) {
	if err := h.Publish(TypeRun, run); err != nil {
		h.logger.Error().Err(err).Msg("encode run event")
	}
}

// ServeHTTP upgrades the request and streams messages until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.started.Load() {
		http.Error(w, ErrNotStarted.Error(), http.StatusServiceUnavailable)
		return
	}
	select {
	case <-h.done:
		http.Error(w, ErrStopped.Error(), http.StatusServiceUnavailable)
		return
	default:
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client input and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Verify interface compliance at compile time.
var _ simulation.Observer = (*Hub)(nil)
