package httpgin

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/gigbook/internal/domain"
	"github.com/kirinyoku/gigbook/internal/service"
)

const streamHeartbeat = 25 * time.Second

// @Summary  List notifications, newest first
// @Security BearerAuth
// @Param    limit  query int false "page size (max 100)"
// @Param    offset query int false "offset"
// @Success  200 {array} domain.Notification
// @Router   /v1/notifications [get]
func handleListNotifications(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Inbox.List(
			c.Request.Context(),
			userID(c),
			parseIntDefault(c.Query("limit"), 0),
			parseIntDefault(c.Query("offset"), 0),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// @Summary  Mark a notification read
// @Security BearerAuth
// @Param    id  path  int  true  "Notification ID"
// @Success  204
// @Failure  404 {object} ErrorResponse
// @Router   /v1/notifications/{id}/read [post]
func handleMarkNotificationRead(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		respondErr(c, svcs.Inbox.MarkRead(c.Request.Context(), userID(c), id))
	}
}

// @Summary  Live notifications (server-sent events)
// @Security BearerAuth
// @Produce  text/event-stream
// @Success  200
// @Failure  503 {object} ErrorResponse
// @Router   /v1/notifications/stream [get]
func handleNotificationStream(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !svcs.Inbox.Live() {
			respondErr(c, svcs.Inbox.Stream(c.Request.Context(), userID(c), nil))
			return
		}

		ctx := c.Request.Context()
		msgs := make(chan domain.Notification, 16)
		done := make(chan error, 1)

		go func() {
			done <- svcs.Inbox.Stream(ctx, userID(c), func(n domain.Notification) {
				select {
				case msgs <- n:
				case <-ctx.Done():
				}
			})
		}()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		c.Stream(func(io.Writer) bool {
			select {
			case n := <-msgs:
				c.SSEvent("notification", n)
				return true
			case <-heartbeat.C:
				c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
				return true
			case err := <-done:
				if err != nil {
					_ = c.Error(err)
				}
				return false
			case <-ctx.Done():
				return false
			}
		})
	}
}
