package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"portal-notification-service/internal/config"
)

// NewRouter wires the HTTP surface.
func NewRouter(logger *logrus.Logger, cfg config.Config, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger))

	grp := r.Group(cfg.API.BasePath)
	{
		grp.POST("/notifications", h.SubmitNotification)
		grp.GET("/notifications/:id", h.GetNotification)
		grp.POST("/notifications/:id/read", h.MarkRead)
		grp.POST("/notifications/:id/dismiss", h.MarkDismissed)
		grp.POST("/notifications/:id/receipt", h.DeliveryReceipt)
		grp.GET("/users/:user_id/notifications", h.ListNotifications)
		grp.GET("/users/:user_id/preferences", h.GetPreferences)
		grp.PUT("/users/:user_id/preferences", h.UpdatePreferences)
		grp.PUT("/users/:user_id/contact", h.UpdateContact)
		grp.PUT("/templates/:type", h.UpsertTemplate)
	}

	r.GET("/ws", h.WebSocket)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
