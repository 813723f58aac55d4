package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/igoorng/webhook/internal/live"
)

const wsWriteWait = 10 * time.Second

// Stream godoc
// @Summary      Live message stream (SSE)
// @Description  Emits one data frame per newly stored message and a heartbeat frame when idle.
// @Tags         stream
// @Produce      text/event-stream
// @Success      200
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	sub := h.live.Subscribe()
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.Header().Set("Content-Type", sse.ContentType)
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	h.Logger.DebugwCtx(ctx, "Stream reader connected", "source_ip", c.ClientIP())
	defer h.Logger.DebugwCtx(ctx, "Stream reader disconnected", "source_ip", c.ClientIP())

	for {
		ev, err := sub.Next(ctx, h.opts.Heartbeat)
		if err != nil {
			return
		}

		c.Render(-1, sse.Event{Data: ev})
		c.Writer.Flush()
	}
}

// WebSocket godoc
// @Summary      Live message stream (WebSocket)
// @Description  Same frames as /api/stream, one JSON text message per event.
// @Tags         stream
// @Success      101
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/ws [get]
func (h *Handler) WebSocket(c *gin.Context) {
	sub := h.live.Subscribe()
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.WarnwCtx(c.Request.Context(), "WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reads only detect the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		ev, err := sub.Next(ctx, h.opts.Heartbeat)
		if err != nil {
			if errors.Is(err, live.ErrClosed) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
			}
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.Logger.DebugwCtx(ctx, "WebSocket write failed", "error", err)
			return
		}
	}
}
