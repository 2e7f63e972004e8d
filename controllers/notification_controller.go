package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/powder-coating-api/config"
	"github.com/kendall-kelly/powder-coating-api/services"
)

// ListNotifications handles GET /api/v1/notifications?unread=true
func ListNotifications(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notes, err := services.NewNotificationService(config.GetDB()).List(c.Request.Context(), p, unreadOnly)
	if err != nil {
		handleServiceError(c, err, "load notifications")
		return
	}

	unread := 0
	for _, n := range notes {
		if !n.Read {
			unread++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    notes,
		"meta":    gin.H{"unread": unread},
	})
}

// MarkNotificationRead handles PATCH /api/v1/notifications/:id/read
func MarkNotificationRead(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	n, err := services.NewNotificationService(config.GetDB()).MarkRead(c.Request.Context(), p, id)
	if err != nil {
		handleServiceError(c, err, "update notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    n,
	})
}
