package handler

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nagendrasomala/quizy-gateway/internal/middleware"
	"github.com/nagendrasomala/quizy-gateway/internal/model"
	"github.com/nagendrasomala/quizy-gateway/internal/session"
	ws "github.com/nagendrasomala/quizy-gateway/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// WSHandler streams the quiz session over a WebSocket: answers and
// environment signals inbound, warnings/termination/grading outbound.
type WSHandler struct {
	manager  *session.Manager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(manager *session.Manager, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		manager:  manager,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// safeConn serializes writes: session event callbacks and read-loop replies
// both target the same connection, and gorilla conns allow one writer at a
// time.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *safeConn) write(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ws.WriteTyped(s.conn, v)
}

func (s *safeConn) writeError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = ws.WriteError(s.conn, msg)
}

// wsNotifier forwards session events to the connected browser.
type wsNotifier struct {
	conn *safeConn
}

func (n *wsNotifier) Warning(violations int) {
	_ = n.conn.write(ws.WarningResponse{
		Event:      ws.EventWarning,
		Violations: violations,
		Message:    "You switched tabs! Be careful, the quiz may auto-submit.",
	})
}

func (n *wsNotifier) Terminated(reason model.TerminationReason) {
	_ = n.conn.write(ws.TerminateResponse{
		Event:  ws.EventTerminate,
		Reason: string(reason),
	})
}

func (n *wsNotifier) Graded(score int) {
	_ = n.conn.write(ws.GradedResponse{
		Event: ws.EventGraded,
		Score: score,
	})
}

// SessionStream godoc
// WS /ws/v1/sessions/:quiz_id/stream
// Requires an existing session (created via the REST start endpoint).
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	quizID := c.Param("quiz_id")
	ctrl, err := h.manager.Get(claims.RegNo, quizID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session for this quiz"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer rawConn.Close()
	conn := &safeConn{conn: rawConn}

	wsLog := h.log.With().
		Str("reg_no", claims.RegNo).
		Str("quiz_id", quizID).
		Logger()

	// Session events flow to this socket until it goes away; the cancel
	// keeps a dead connection from lingering as a session listener.
	cancel := ctrl.Subscribe(&wsNotifier{conn: conn})
	defer cancel()

	wsLog.Info().Msg("Candidate connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(rawConn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(c, conn, ctrl, &msg)
		case ws.ActionSignal:
			h.handleSignal(c, conn, ctrl, &msg)
		case ws.ActionFinish:
			h.handleFinish(c, conn, ctrl)
		case ws.ActionPing:
			_ = conn.write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.writeError("unknown action: " + string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(c *gin.Context, conn *safeConn, ctrl *session.Controller, msg *ws.RequestPayload) {
	if msg.Option < 1 {
		conn.writeError("option must be a 1-based position")
		return
	}

	if err := ctrl.RecordAnswer(c.Request.Context(), msg.QuestionIndex, msg.Option); err != nil {
		conn.writeError(err.Error())
		return
	}
	_ = conn.write(ws.AckResponse{Event: ws.EventSuccess, Status: "saved"})
}

func (h *WSHandler) handleSignal(c *gin.Context, conn *safeConn, ctrl *session.Controller, msg *ws.RequestPayload) {
	switch model.EnvironmentSignal(msg.Signal) {
	case model.SignalFullscreenGranted:
		if err := ctrl.GrantFullscreen(); err != nil {
			conn.writeError(err.Error())
			return
		}
		_ = conn.write(ws.AckResponse{Event: ws.EventSuccess, Status: "active"})

	case model.SignalFullscreenExit:
		if err := ctrl.ReportFullscreenExit(c.Request.Context()); err != nil {
			conn.writeError(err.Error())
			return
		}
		_ = conn.write(ws.AckResponse{Event: ws.EventReset, Status: "awaiting_fullscreen"})

	case model.SignalHidden:
		// The warning or terminate event reaches the client through the
		// subscribed notifier; an extra ack here would just duplicate it.
		ctrl.ReportHidden(c.Request.Context())

	default:
		conn.writeError("unknown signal: " + msg.Signal)
	}
}

func (h *WSHandler) handleFinish(c *gin.Context, conn *safeConn, ctrl *session.Controller) {
	// On success the graded event reaches the client through the subscribed
	// notifier; only failures need a direct reply.
	if _, err := ctrl.Submit(c.Request.Context(), model.ReasonManual); err != nil {
		if errors.Is(err, session.ErrAlreadySubmitted) || errors.Is(err, session.ErrSubmitInFlight) {
			conn.writeError(err.Error())
			return
		}
		conn.writeError("submit failed: " + err.Error())
	}
}
