package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nagendrasomala/quizy-gateway/internal/middleware"
	"github.com/nagendrasomala/quizy-gateway/internal/model"
	"github.com/nagendrasomala/quizy-gateway/internal/response"
	"github.com/nagendrasomala/quizy-gateway/internal/session"
	"github.com/nagendrasomala/quizy-gateway/internal/validator"
)

// SessionHandler exposes the quiz-taking session over REST.
type SessionHandler struct {
	manager *session.Manager
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(manager *session.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

// Start godoc
// POST /api/v1/sessions/:quiz_id/start
// Loads the quiz from the content service and creates the session, or
// re-enters the existing one (reload recovery). A missing quiz id or a closed
// window is fatal: the browser redirects away instead of rendering questions.
func (h *SessionHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID := c.Param("quiz_id")
	if quizID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrQuizIDRequired)
		return
	}

	ctrl, err := h.manager.Start(c.Request.Context(), claims.RegNo, quizID, middleware.GetToken(c))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrQuizEnded):
			response.Fail(c, http.StatusConflict, response.ErrQuizEnded)
		case errors.Is(err, session.ErrNoQuizID):
			response.Fail(c, http.StatusBadRequest, response.ErrQuizIDRequired)
		default:
			response.Fail(c, http.StatusBadGateway, response.ErrQuizUnavailable)
		}
		return
	}

	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// State godoc
// GET /api/v1/sessions/:quiz_id
// Returns the reload-recovery snapshot: state, remaining time, answers.
func (h *SessionHandler) State(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// RecordAnswer godoc
// POST /api/v1/sessions/:quiz_id/answers
func (h *SessionHandler) RecordAnswer(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.RecordAnswer(c.Request.Context(), req.QuestionIndex, req.Option); err != nil {
		switch {
		case errors.Is(err, session.ErrNotInteractive):
			response.Fail(c, http.StatusConflict, response.ErrNotInteractive)
		case errors.Is(err, session.ErrUnknownQuestion):
			response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrPersistFailed)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"recorded": true})
}

// Navigate godoc
// POST /api/v1/sessions/:quiz_id/navigate
// Moves the question cursor by ±1, clamped to the question range.
func (h *SessionHandler) Navigate(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	current := ctrl.Navigate(req.Direction)
	response.Success(c, http.StatusOK, gin.H{"current_question": current})
}

// ReportSignal godoc
// POST /api/v1/sessions/:quiz_id/events
// Receives environment signals from the browser: fullscreen grant/exit and
// visibility loss.
func (h *SessionHandler) ReportSignal(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.SignalRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	switch req.Type {
	case model.SignalFullscreenGranted:
		if err := ctrl.GrantFullscreen(); err != nil {
			h.failSession(c, err)
			return
		}
		response.Success(c, http.StatusOK, ctrl.Snapshot())

	case model.SignalFullscreenExit:
		if err := ctrl.ReportFullscreenExit(c.Request.Context()); err != nil {
			h.failSession(c, err)
			return
		}
		response.Success(c, http.StatusOK, ctrl.Snapshot())

	case model.SignalHidden:
		violations, terminated := ctrl.ReportHidden(c.Request.Context())
		response.Success(c, http.StatusOK, gin.H{
			"violations": violations,
			"terminated": terminated,
		})

	default:
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	}
}

// Finish godoc
// POST /api/v1/sessions/:quiz_id/finish
// Submits the session: called directly on manual finish, or as the Proceed
// action after a time-up/tab-switch termination. On failure the answers stay
// persisted and the candidate may retry.
func (h *SessionHandler) Finish(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	score, err := ctrl.Submit(c.Request.Context(), model.ReasonManual)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"score": score})
}

// controller resolves the caller's session for the quiz in the path, writing
// the error response itself when there is none.
func (h *SessionHandler) controller(c *gin.Context) (*session.Controller, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	quizID := c.Param("quiz_id")
	if quizID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrQuizIDRequired)
		return nil, false
	}

	ctrl, err := h.manager.Get(claims.RegNo, quizID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil, false
	}
	return ctrl, true
}

func (h *SessionHandler) failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, session.ErrSubmitInFlight):
		response.Fail(c, http.StatusConflict, response.ErrSubmitInFlight)
	case errors.Is(err, session.ErrNotInteractive):
		response.Fail(c, http.StatusConflict, response.ErrNotInteractive)
	case errors.Is(err, session.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	default:
		response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
	}
}
