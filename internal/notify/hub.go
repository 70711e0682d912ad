package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var ErrHubBusy = errors.New("notification hub queue full")

const writeWait = 10 * time.Second

// Hub pushes events to the live websocket sessions of their recipient.
// A single goroutine owns all writes so connections never see concurrent
// writers.
type Hub struct {
	clients   map[uint]map[*websocket.Conn]bool
	broadcast chan Event
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
}

// NewHub creates a Hub and starts its delivery loop.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[uint]map[*websocket.Conn]bool),
		broadcast: make(chan Event, 100),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case evt := <-h.broadcast:
			h.deliver(evt)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) deliver(evt Event) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients[evt.RecipientID]))
	for c := range h.clients[evt.RecipientID] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteJSON(evt); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"user_id":  evt.RecipientID,
				"conn_ptr": fmt.Sprintf("%p", c),
			}).Warn("notify: websocket write failed, dropping client")
			h.Unregister(evt.RecipientID, c)
			c.Close()
		}
	}
}

// Register adds a live session for userID.
func (h *Hub) Register(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[*websocket.Conn]bool)
	}
	h.clients[userID][conn] = true
	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"conn_ptr": fmt.Sprintf("%p", conn),
	}).Info("Client registered with notification hub.")
}

// Unregister removes a session. Unknown sessions are ignored.
func (h *Hub) Unregister(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[userID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.clients, userID)
		}
	}
}

// Connected returns the number of live sessions for userID.
func (h *Hub) Connected(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID])
}

// Serve registers conn and blocks reading until the client goes away.
// Incoming messages are discarded; the stream is push only.
func (h *Hub) Serve(userID uint, conn *websocket.Conn) {
	h.Register(userID, conn)
	defer func() {
		h.Unregister(userID, conn)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithError(err).WithField("user_id", userID).Debug("notify: websocket read ended")
			}
			return
		}
	}
}

// Notify queues evt for delivery. Events without a recipient are dropped.
func (h *Hub) Notify(_ context.Context, evt Event) error {
	if evt.RecipientID == 0 {
		return nil
	}
	select {
	case <-h.done:
		return errors.New("notification hub closed")
	default:
	}
	select {
	case h.broadcast <- evt:
		return nil
	default:
		return ErrHubBusy
	}
}

// Close stops the delivery loop and closes every session.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, clients := range h.clients {
			for c := range clients {
				c.Close()
			}
		}
		h.clients = make(map[uint]map[*websocket.Conn]bool)
	})
}
