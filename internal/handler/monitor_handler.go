package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/invigilo/proctor-backend/internal/config"
	"github.com/invigilo/proctor-backend/internal/middleware"
	"github.com/invigilo/proctor-backend/internal/response"
	"github.com/invigilo/proctor-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	monitorRefreshInterval = 2 * time.Second
	keepAliveInterval      = 30 * time.Second
	refreshTimeout         = 5 * time.Second // prevent a slow registry from blocking the SSE loop
)

// MonitorHandler streams live session views to the proctor console over
// SSE. Registry events arrive over pub/sub; a refresh ticker keeps the
// derived fields (remaining time, staleness) moving between events.
type MonitorHandler struct {
	rdb      *redis.Client
	sessions *service.SessionManager
	log      zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler. rdb may be nil when
// running on the in-memory registry; the stream then relies on the
// refresh ticker alone.
func NewMonitorHandler(rdb *redis.Client, sessions *service.SessionManager, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:      rdb,
		sessions: sessions,
		log:      log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorSSE godoc
// GET /api/v1/admin/monitor
func (h *MonitorHandler) MonitorSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, reqCtx)

	var ch <-chan *redis.Message
	if h.rdb != nil {
		pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.MonitorChannel())
		defer pubsub.Close()
		ch = pubsub.Channel()
	}

	refreshTicker := time.NewTicker(monitorRefreshInterval)
	defer refreshTicker.Stop()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	h.log.Info().Msg("Admin attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward raw JSON directly, no deserialization needed.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendRefresh(c, reqCtx)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *MonitorHandler) sendSnapshot(c *gin.Context, ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	views, err := h.sessions.Views(fetchCtx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to build monitor snapshot")
		views = nil
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"sessions": views,
		},
	})
	c.Writer.Flush()
}

func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	views, err := h.sessions.Views(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch session views for refresh")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type":     "refresh",
		"sessions": views,
	})
	c.Writer.Flush()
}
