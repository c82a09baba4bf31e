// Package events streams run ledger and stage events to websocket subscribers.
package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"bin-ranges/internal/domain"
)

// Message types.
const (
	TypeStage = "stage"
	TypeRun   = "run"
)

// Envelope is the JSON frame sent to subscribers.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// HubConfig configures subscriber connections.
type HubConfig struct {
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// SendBuffer is the number of frames queued per subscriber before it is dropped.
	SendBuffer int
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		SendBuffer:   64,
	}
}

type subscriber struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
}

// Hub fans published events out to every connected subscriber.
// A subscriber that cannot keep up is disconnected rather than slowing publishers.
type Hub struct {
	config   HubConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewHub creates a Hub.
func NewHub(config *HubConfig, logger *slog.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		config: cfg,
		logger: logger.With("component", "events"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := &subscriber{conn: conn, remote: r.RemoteAddr, send: make(chan []byte, h.config.SendBuffer)}
	h.mu.Lock()
	if h.closed.Load() {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.subs[s] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()
	h.logger.Debug("subscriber connected", "remote", r.RemoteAddr)

	go h.writeLoop(s)
	h.readLoop(s)
}

// PublishStage sends a stage event to all subscribers.
func (h *Hub) PublishStage(e domain.StageEvent) {
	h.publish(Envelope{Type: TypeStage, Data: e})
}

// PublishRun sends a finished run to all subscribers.
func (h *Hub) PublishRun(r domain.Run) {
	h.publish(Envelope{Type: TypeRun, Data: r})
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects all subscribers and waits for their writers to exit.
func (h *Hub) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	h.mu.Lock()
	for s := range h.subs {
		delete(h.subs, s)
		close(s.send)
	}
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

func (h *Hub) publish(env Envelope) {
	if h.closed.Load() {
		return
	}
	frame, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("marshal event", "type", env.Type, "error", err)
		return
	}

	var slow []*subscriber
	h.mu.RLock()
	for s := range h.subs {
		select {
		case s.send <- frame:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.logger.Warn("dropping slow subscriber", "remote", s.remote)
		h.remove(s)
	}
}

// remove unregisters s and closes its queue. Safe to call more than once.
func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.send)
	}
}

// readLoop discards client frames and returns when the connection drops.
func (h *Hub) readLoop(s *subscriber) {
	defer h.remove(s)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	defer h.wg.Done()
	defer s.conn.Close()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.remove(s)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		}
	}
}
