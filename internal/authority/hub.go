package authority

import (
	"encoding/json"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/state"
)

// Hub tracks every connected viewer and fans state-update frames out to
// all of them.
type Hub struct {
	mu           gosync.Mutex
	viewers      map[uint64]*viewer
	nextID       atomic.Uint64
	queueSize    int
	writeTimeout time.Duration
	log          *zap.Logger
}

func NewHub(queueSize int, writeTimeout time.Duration, log *zap.Logger) *Hub {
	return &Hub{
		viewers:      make(map[uint64]*viewer),
		queueSize:    queueSize,
		writeTimeout: writeTimeout,
		log:          log,
	}
}

// Add registers a freshly upgraded connection and starts its pumps.
func (h *Hub) Add(conn *websocket.Conn) {
	id := h.nextID.Add(1)
	v := newViewer(id, conn, h, h.queueSize, h.log)
	h.mu.Lock()
	h.viewers[id] = v
	h.mu.Unlock()
	v.start()
	h.log.Info("viewer connected", zap.Uint64("viewer", id), zap.Int("total", h.Count()))
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	_, ok := h.viewers[id]
	delete(h.viewers, id)
	h.mu.Unlock()
	if ok {
		h.log.Info("viewer disconnected", zap.Uint64("viewer", id), zap.Int("total", h.Count()))
	}
}

// Broadcast frames s as a state-update and sends it to every viewer. The
// payload is marshaled once, not per viewer.
func (h *Hub) Broadcast(s *state.Snapshot) {
	env, err := state.NewStateUpdate(s)
	if err != nil {
		h.log.Error("encode broadcast", zap.Error(err))
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error("encode broadcast envelope", zap.Error(err))
		return
	}
	h.mu.Lock()
	targets := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		targets = append(targets, v)
	}
	h.mu.Unlock()
	for _, v := range targets {
		v.send(data)
	}
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// CloseAll disconnects every viewer (shutdown).
func (h *Hub) CloseAll() {
	h.mu.Lock()
	targets := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		targets = append(targets, v)
	}
	h.mu.Unlock()
	for _, v := range targets {
		v.close()
	}
}
