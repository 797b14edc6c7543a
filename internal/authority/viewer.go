package authority

import (
	gosync "sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// viewer is one connected push-channel subscriber. Writes go through a
// buffered queue drained by a dedicated goroutine; a viewer that cannot
// keep up is dropped rather than allowed to stall the hub.
type viewer struct {
	id   uint64
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	hub  *Hub
	log  *zap.Logger

	closeOnce gosync.Once
}

func newViewer(id uint64, conn *websocket.Conn, hub *Hub, queueSize int, log *zap.Logger) *viewer {
	return &viewer{
		id:   id,
		conn: conn,
		out:  make(chan []byte, queueSize),
		done: make(chan struct{}),
		hub:  hub,
		log:  log.With(zap.Uint64("viewer", id)),
	}
}

func (v *viewer) start() {
	go v.writeLoop()
	go v.readLoop()
}

// send queues a broadcast frame. Non-blocking: a full queue means the
// viewer stopped draining, so it gets disconnected (backpressure).
func (v *viewer) send(data []byte) {
	select {
	case v.out <- data:
	default:
		v.log.Warn("viewer queue full, disconnecting")
		v.close()
	}
}

func (v *viewer) writeLoop() {
	for {
		select {
		case <-v.done:
			return
		case data := <-v.out:
			v.conn.SetWriteDeadline(time.Now().Add(v.hub.writeTimeout))
			if err := v.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				v.close()
				return
			}
		}
	}
}

// readLoop exists to notice disconnects and honor control frames; the
// channel is push-only toward viewers, so payloads are discarded.
func (v *viewer) readLoop() {
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			v.close()
			return
		}
	}
}

func (v *viewer) close() {
	v.closeOnce.Do(func() {
		close(v.done)
		v.conn.Close()
		v.hub.remove(v.id)
	})
}
