package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/invigilo/proctor-backend/internal/analyzer"
	"github.com/invigilo/proctor-backend/internal/middleware"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/service"
	ws "github.com/invigilo/proctor-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the proctoring event stream from the student client.
type WSHandler struct {
	sessions *service.SessionManager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionManager, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/sessions/:session_id/stream
// Upgrades to WebSocket for the low-latency proctoring feed: face
// events, client activity, and recorder liveness.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID := c.Param("session_id")
	owner, err := h.sessions.Owner(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	if owner != claims.StudentID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("student_id", claims.StudentID).
		Str("session_id", sessionID).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionFaceEvent:
			h.handleFaceEvent(c, conn, wsLog, sessionID, &msg)
		case ws.ActionActivity:
			h.handleActivity(c, conn, sessionID, &msg)
		case ws.ActionMedia:
			h.handleMedia(c, conn, sessionID, &msg)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleFaceEvent(c *gin.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID string, msg *ws.RequestPayload) {
	kind := model.FlagType(msg.Kind)
	if kind != model.FlagFaceAbsent && kind != model.FlagMultipleFaces {
		ws.WriteError(conn, "unknown face event kind: "+msg.Kind)
		return
	}

	ev := analyzer.FaceEvent{
		Kind:            kind,
		DurationSeconds: msg.DurationSeconds,
		Count:           msg.Count,
	}
	if err := h.sessions.FaceEvent(c.Request.Context(), sessionID, ev); err != nil {
		wsLog.Warn().Err(err).Msg("Face event dropped")
		ws.WriteError(conn, "session not active")
		return
	}
	ws.WriteTyped(conn, ws.AckResponse{Event: ws.EventAck, Action: ws.ActionFaceEvent})
}

func (h *WSHandler) handleActivity(c *gin.Context, conn *websocket.Conn, sessionID string, msg *ws.RequestPayload) {
	if msg.Text == "" {
		ws.WriteError(conn, "text is required")
		return
	}
	if err := h.sessions.LogActivity(c.Request.Context(), sessionID, msg.Text); err != nil {
		ws.WriteError(conn, "session not active")
		return
	}
	ws.WriteTyped(conn, ws.AckResponse{Event: ws.EventAck, Action: ws.ActionActivity})
}

func (h *WSHandler) handleMedia(c *gin.Context, conn *websocket.Conn, sessionID string, msg *ws.RequestPayload) {
	if err := h.sessions.UpdateMedia(c.Request.Context(), sessionID, msg.WebcamActive, msg.ScreenShareActive); err != nil {
		ws.WriteError(conn, "session not active")
		return
	}
	ws.WriteTyped(conn, ws.AckResponse{Event: ws.EventAck, Action: ws.ActionMedia})
}
