package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mangavault/internal/auth"
	"mangavault/internal/notification"
)

func (d *Deps) handleListNotifications(c *gin.Context) {
	userID := c.GetString(auth.CtxUserIDKey)
	unreadOnly := c.Query("unread") == "true"

	list, pagination, err := notification.List(c.Request.Context(), d.DB, userID, unreadOnly,
		parseInt(c.Query("page"), 1), parseInt(c.Query("limit"), 20))
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "pagination": pagination})
}

func (d *Deps) handleUnreadCount(c *gin.Context) {
	n, err := notification.UnreadCount(c.Request.Context(), d.DB, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (d *Deps) handleMarkRead(c *gin.Context) {
	err := notification.MarkRead(c.Request.Context(), d.DB,
		c.GetString(auth.CtxUserIDKey), c.Param("id"))
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (d *Deps) handleMarkAllRead(c *gin.Context) {
	n, err := notification.MarkAllRead(c.Request.Context(), d.DB, c.GetString(auth.CtxUserIDKey))
	if err != nil {
		d.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}
