// Package api exposes the webhook receiver and the dashboard JSON API over
// gin.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/igoorng/webhook/internal/auth"
	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/ingest"
	"github.com/igoorng/webhook/internal/live"
	"github.com/igoorng/webhook/internal/logger"
	"github.com/igoorng/webhook/internal/pagination"
	"github.com/igoorng/webhook/internal/settings"
	"github.com/igoorng/webhook/internal/store"
	"github.com/igoorng/webhook/pkg/errors"
)

type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) ingest.Result
}

type MessageStore interface {
	Stats() store.Stats
	Archives() []store.ArchiveInfo
	Clear(ctx context.Context) error
}

type Pager interface {
	GetPage(page, pageSize int, includeArchived bool) pagination.Page
}

type SettingsStore interface {
	Get() settings.Settings
	Apply(ctx context.Context, u settings.Update) (settings.Settings, error)
}

type Subscriber interface {
	Subscribe() *live.Subscription
}

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Options struct {
	MaxBodyBytes int64
	Heartbeat    time.Duration
}

type Handler struct {
	BaseHandler
	ingester Ingester
	messages MessageStore
	pager    Pager
	settings SettingsStore
	live     Subscriber
	gate     *auth.Gate
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(
	ingester Ingester,
	messages MessageStore,
	pager Pager,
	settingsStore SettingsStore,
	hub Subscriber,
	gate *auth.Gate,
	opts Options,
	log logger.Logger,
) *Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = constants.DefaultMaxBodyBytes
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = constants.DefaultHeartbeat
	}

	return &Handler{
		BaseHandler: BaseHandler{Logger: log},
		ingester:    ingester,
		messages:    messages,
		pager:       pager,
		settings:    settingsStore,
		live:        hub,
		gate:        gate,
		opts:        opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes mounts every endpoint. webhookMiddleware runs only in
// front of POST /webhook.
func (h *Handler) RegisterRoutes(router *gin.Engine, webhookMiddleware ...gin.HandlerFunc) {
	router.POST("/webhook", append(webhookMiddleware, h.ReceiveWebhook)...)

	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)

	api := router.Group("/api", h.gate.Middleware())
	{
		api.GET("/messages", h.ListMessages)
		api.GET("/stats", h.Stats)
		api.GET("/archives", h.ListArchives)
		api.POST("/clear_messages", h.ClearMessages)

		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.UpdateSettings)

		api.GET("/stream", h.Stream)
		api.GET("/ws", h.WebSocket)
	}
}
