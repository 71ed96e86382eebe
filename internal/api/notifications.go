package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fleetpredict/fleetpredict-go/internal/notification"
)

// initNotificationRoutes registers the in-app notification feed endpoints.
func (c *Controller) initNotificationRoutes() {
	notifications := c.Group.Group("/notifications")

	notifications.GET("", c.ListNotifications)
	notifications.GET("/unread/count", c.GetUnreadNotificationCount)
	notifications.PATCH("/:id/read", c.MarkNotificationRead, c.authMiddleware)
}

// ListNotifications returns the notification feed, newest first.
func (c *Controller) ListNotifications(ctx echo.Context) error {
	service := notification.GetService()
	if service == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Notification service not available"})
	}

	limit := 0
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		if v, err := strconv.Atoi(limitParam); err == nil && v > 0 {
			limit = v
		}
	}

	entries := service.List(limit)
	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": entries,
		"count":         len(entries),
		"unread":        service.UnreadCount(),
	})
}

// GetUnreadNotificationCount returns the number of unread notifications.
func (c *Controller) GetUnreadNotificationCount(ctx echo.Context) error {
	service := notification.GetService()
	if service == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Notification service not available"})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"unread": service.UnreadCount()})
}

// MarkNotificationRead flags one notification as read.
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	service := notification.GetService()
	if service == nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Notification service not available"})
	}

	id := ctx.Param("id")
	if !service.MarkRead(id) {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"id": id, "read": true})
}
