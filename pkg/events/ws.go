package events

import (
	"net/http"
	"time"

	"lagoonstay/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// StreamHandler exposes the event broadcaster over a websocket.
type StreamHandler struct {
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader
	log         *logger.Logger
}

func NewStreamHandler(broadcaster *Broadcaster, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *StreamHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/events/stream", h.Stream)
}

// Stream upgrades the connection and forwards broadcast events until the
// client goes away.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.broadcaster.Subscribe()
	defer cancel()

	// Drain client frames so close messages are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
