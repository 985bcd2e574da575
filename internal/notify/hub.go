package notify

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"storefront-payments/internal/logging"
	"storefront-payments/internal/metrics"

	"golang.org/x/net/websocket"
)

const TypeOrderComplete = "OrderCompleteNotification"

var ErrNoSession = errors.New("no live session for buyer")

// Message is the JSON envelope written to the buyer's socket.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub keeps at most one live connection per buyer email; a new connection replaces the old one.
type Hub struct {
	mu           sync.Mutex
	conns        map[string]*websocket.Conn
	writeTimeout time.Duration
	logger       *slog.Logger
}

func NewHub(writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		conns:        make(map[string]*websocket.Conn),
		writeTimeout: writeTimeout,
		logger:       logging.New("hub"),
	}
}

// Handler serves one websocket session for email until the client goes away.
func (h *Hub) Handler(email string) http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		h.register(email, ws)
		defer h.unregister(email, ws)

		// reads only detect the close; buyers never send anything meaningful
		var discard string
		for {
			if err := websocket.Message.Receive(ws, &discard); err != nil {
				return
			}
		}
	})
}

func (h *Hub) register(email string, ws *websocket.Conn) {
	h.mu.Lock()
	old := h.conns[email]
	h.conns[email] = ws
	h.mu.Unlock()

	if old != nil {
		old.Close()
	}
	h.logger.Debug("session opened", "buyer", email)
}

func (h *Hub) unregister(email string, ws *websocket.Conn) {
	h.mu.Lock()
	if h.conns[email] == ws {
		delete(h.conns, email)
	}
	h.mu.Unlock()
	ws.Close()
}

func (h *Hub) Connected(email string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[email]
	return ok
}

func (h *Hub) Notify(email, msgType string, payload interface{}) error {
	h.mu.Lock()
	ws, ok := h.conns[email]
	h.mu.Unlock()
	if !ok {
		metrics.Notifications.WithLabelValues("no_session").Inc()
		return ErrNoSession
	}

	if err := ws.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
		metrics.Notifications.WithLabelValues("error").Inc()
		return err
	}
	if err := websocket.JSON.Send(ws, Message{Type: msgType, Payload: payload}); err != nil {
		metrics.Notifications.WithLabelValues("error").Inc()
		h.unregister(email, ws)
		return err
	}

	metrics.Notifications.WithLabelValues("sent").Inc()
	return nil
}

func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*websocket.Conn)
	h.mu.Unlock()

	for _, ws := range conns {
		ws.Close()
	}
}
