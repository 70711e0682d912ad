package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"matatu_hub/internal/middleware"
	"matatu_hub/internal/models"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS layer for HTTP calls
	},
}

// HandleNotificationWebSocket streams join request notifications to the
// authenticated user. Browsers cannot set headers on the upgrade, so the
// token travels in ?token=.
func (h *Handler) HandleNotificationWebSocket(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}
	claims, err := middleware.ValidateToken(tokenStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).Select("id").First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
			return
		}
		logrus.WithError(err).Error("HandleNotificationWebSocket: user lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("HandleNotificationWebSocket: upgrade failed")
		return
	}
	logrus.WithField("user_id", user.ID).Info("notification socket connected")
	h.Hub.Serve(user.ID, conn)
}
