package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"portal-notification-service/internal/db"
	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
	"portal-notification-service/internal/providers"
)

type Handler struct {
	db     *db.DB
	svc    *notification.Service
	hub    *providers.Hub
	logger *logrus.Logger
}

func NewHandler(db *db.DB, svc *notification.Service, hub *providers.Hub, logger *logrus.Logger) *Handler {
	return &Handler{db: db, svc: svc, hub: hub, logger: logger}
}

// SubmitNotification accepts an event payload and queues it for resolution.
func (h *Handler) SubmitNotification(c *gin.Context) {
	var ev models.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		h.logger.Errorf("Invalid request body for notification: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	n := ev.ToNotification()
	if err := h.svc.Submit(c.Request.Context(), n); err != nil {
		if notification.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("Submit failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit notification"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *Handler) GetNotification(c *gin.Context) {
	id := c.Param("id")
	n, err := h.svc.Store().Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Errorf("Get notification %s failed: %v", id, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	userID := c.Param("user_id")
	f := notification.Filter{Type: c.Query("type")}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		f.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil {
		f.Offset = v
	}
	f.UnreadOnly = c.Query("unread") == "true"

	notifications, err := h.svc.Store().ListForUser(c.Request.Context(), userID, f)
	if err != nil {
		h.logger.Errorf("List notifications for user_id %s failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Store().MarkRead(c.Request.Context(), id); err != nil {
		h.logger.Errorf("Mark read %s failed: %v", id, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *Handler) MarkDismissed(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Store().MarkDismissed(c.Request.Context(), id); err != nil {
		h.logger.Errorf("Mark dismissed %s failed: %v", id, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "dismissed"})
}

// DeliveryReceipt applies an asynchronous delivery confirmation from a
// channel transport.
func (h *Handler) DeliveryReceipt(c *gin.Context) {
	type receiptRequest struct {
		Channel string `json:"channel" binding:"required"`
	}
	id := c.Param("id")

	var req receiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.svc.OnDeliveryReceipt(c.Request.Context(), id, models.Channel(req.Channel)); err != nil {
		h.logger.Errorf("Delivery receipt for %s/%s failed: %v", id, req.Channel, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "delivered"})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	userID := c.Param("user_id")
	prefs, err := h.db.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorf("Get preferences for user_id %s failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	userID := c.Param("user_id")
	var prefs models.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		h.logger.Errorf("Invalid preferences body for user_id %s: %v", userID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	prefs.UserID = userID

	if err := h.db.UpsertPreferences(c.Request.Context(), prefs); err != nil {
		h.logger.Errorf("Update preferences for user_id %s failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *Handler) UpdateContact(c *gin.Context) {
	userID := c.Param("user_id")
	var contact models.Contact
	if err := c.ShouldBindJSON(&contact); err != nil {
		h.logger.Errorf("Invalid contact body for user_id %s: %v", userID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	contact.UserID = userID

	if err := h.db.UpsertContact(c.Request.Context(), contact); err != nil {
		h.logger.Errorf("Update contact for user_id %s failed: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contact"})
		return
	}
	c.JSON(http.StatusOK, contact)
}

// UpsertTemplate stores a template and refreshes the in-memory store.
func (h *Handler) UpsertTemplate(c *gin.Context) {
	typ := c.Param("type")
	var t models.Template
	if err := c.ShouldBindJSON(&t); err != nil {
		h.logger.Errorf("Invalid template body for type %s: %v", typ, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	t.Type = typ

	if err := h.db.UpsertTemplate(c.Request.Context(), t); err != nil {
		h.logger.Errorf("Upsert template %s failed: %v", typ, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store template"})
		return
	}
	if err := h.svc.Templates().Register(t); err != nil {
		h.logger.Errorf("Register template %s failed: %v", typ, err)
	}
	c.JSON(http.StatusOK, t)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket upgrades the connection and registers it for in-app delivery.
func (h *Handler) WebSocket(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed for user %s: %v", userID, err)
		return
	}
	h.hub.AddConnection(userID, conn)

	go func() {
		defer func() {
			h.hub.RemoveConnection(userID, conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
