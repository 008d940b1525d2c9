package providers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
)

// maxConnsPerUser caps the number of live sockets per user.
const maxConnsPerUser = 10

// Hub manages WebSocket connections for users.
type Hub struct {
	connections map[string]map[*websocket.Conn]bool // userID -> set of connections
	mutex       sync.Mutex
	logger      *logrus.Logger
}

// NewHub constructs an empty Hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// AddConnection registers a WebSocket connection for a user.
func (h *Hub) AddConnection(userID string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, exists := h.connections[userID]; !exists {
		h.connections[userID] = make(map[*websocket.Conn]bool)
	}
	if len(h.connections[userID]) >= maxConnsPerUser {
		h.logger.Warnf("Max connections reached for user %s", userID)
		return
	}
	h.connections[userID][conn] = true
	h.logger.Infof("Added WebSocket connection for user %s (total: %d)", userID, len(h.connections[userID]))
}

// RemoveConnection drops a WebSocket connection for a user.
func (h *Hub) RemoveConnection(userID string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if conns, exists := h.connections[userID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, userID)
		}
		h.logger.Infof("Removed WebSocket connection for user %s (remaining: %d)", userID, len(conns))
	}
}

// SendToUser writes a message to every connection of a user, dropping
// connections that fail.
func (h *Hub) SendToUser(userID string, message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if conns, exists := h.connections[userID]; exists {
		for conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Errorf("Failed to send WebSocket message to user %s: %v", userID, err)
				delete(conns, conn)
			}
		}
		if len(conns) == 0 {
			delete(h.connections, userID)
		}
	}
}

// InAppSender pushes rendered notifications over the user's live WebSocket
// connections. The notification store is the durable inbox; a user with no
// open sockets still counts as sent.
type InAppSender struct {
	hub *Hub
}

// NewInAppSender constructs an in-app sender on top of the hub.
func NewInAppSender(hub *Hub) *InAppSender {
	return &InAppSender{hub: hub}
}

type inAppPayload struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Level   models.Level   `json:"level"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (s *InAppSender) Send(_ context.Context, n *models.Notification, msg notification.RenderedMessage) error {
	payload, err := json.Marshal(inAppPayload{
		ID:      n.ID,
		Type:    n.Type,
		Level:   n.Level,
		Title:   msg.Title,
		Message: msg.Body,
		Data:    n.Data,
	})
	if err != nil {
		return err
	}
	s.hub.SendToUser(n.RecipientID, payload)
	return nil
}
