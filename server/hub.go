package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/ireporter/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Hub fans notifications out to every open socket of a user.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*wsClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: map[uint]map[*wsClient]struct{}{}}
}

type wsClient struct {
	conn *websocket.Conn
	send chan *models.Notification
}

func (h *Hub) register(userID uint, cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*wsClient]struct{}{}
	}
	h.clients[userID][cl] = struct{}{}
	OpenSockets.Inc()
}

func (h *Hub) unregister(userID uint, cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID][cl]; !ok {
		return
	}
	delete(h.clients[userID], cl)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
	close(cl.send)
	OpenSockets.Dec()
}

// Publish queues n for every socket of userID. Slow sockets drop messages
// rather than block the caller.
func (h *Hub) Publish(userID uint, n *models.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients[userID] {
		select {
		case cl.send <- n:
		default:
			logrus.WithField("user_id", userID).Warn("notification socket is full, dropping message")
		}
	}
}

// Connections returns the number of open sockets for userID.
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// serve pumps messages to conn until the peer goes away.
func (h *Hub) serve(userID uint, conn *websocket.Conn) {
	cl := &wsClient{conn: conn, send: make(chan *models.Notification, sendBuffer)}
	h.register(userID, cl)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unregister(userID, cl)
		conn.Close()
	}()

	for {
		select {
		case n, ok := <-cl.send:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
