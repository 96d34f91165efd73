package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSignal Action = "signal"
	ActionFinish Action = "finish"
	ActionPing   Action = "ping"
)

// RequestPayload is the superset envelope of all client messages; Action
// decides which fields are meaningful.
type RequestPayload struct {
	Action Action `json:"action"`

	// answer
	QuestionIndex int `json:"question_index"`
	Option        int `json:"option"`

	// signal: fullscreen_granted | fullscreen_exit | hidden
	Signal string `json:"signal"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSuccess   Event = "success"
	EventWarning   Event = "warning"
	EventTerminate Event = "terminate"
	EventGraded    Event = "graded"
	EventReset     Event = "reset"
	EventPong      Event = "pong"
	EventError     Event = "error"
)

type AckResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// WarningResponse is a non-blocking violation warning.
type WarningResponse struct {
	Event      Event  `json:"event"`
	Violations int    `json:"violations"`
	Message    string `json:"message"`
}

// TerminateResponse tells the client why the session is ending so the
// termination view can explain it (time-up vs tab-switch).
type TerminateResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type GradedResponse struct {
	Event Event `json:"event"`
	Score int   `json:"score"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
