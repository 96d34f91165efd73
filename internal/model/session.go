package model

import "time"

// SessionState enumerates the tagged states of a quiz-taking session. All
// transitions are centralized in the session controller.
type SessionState string

const (
	StateLoading            SessionState = "LOADING"
	StateAwaitingFullscreen SessionState = "AWAITING_FULLSCREEN"
	StateActive             SessionState = "ACTIVE"
	StateTerminating        SessionState = "TERMINATING"
	StateSubmitted          SessionState = "SUBMITTED"
	StateFailed             SessionState = "FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == StateSubmitted || s == StateFailed
}

// TerminationReason tags why a session left ACTIVE. First writer wins: once a
// reason is set, later termination requests are ignored.
type TerminationReason string

const (
	ReasonTimeUp    TerminationReason = "time-up"
	ReasonTabSwitch TerminationReason = "tab-switch"
	ReasonManual    TerminationReason = "manual"
)

// FailureKind tags the terminal FAILED state.
type FailureKind string

const (
	FailureQuizEnded FailureKind = "quiz-ended"
	FailureLoad      FailureKind = "load"
)

// EnvironmentSignal is a proctoring event reported by the candidate's browser.
type EnvironmentSignal string

const (
	SignalFullscreenGranted EnvironmentSignal = "fullscreen_granted"
	SignalFullscreenExit    EnvironmentSignal = "fullscreen_exit"
	SignalHidden            EnvironmentSignal = "hidden"
)

// SessionSnapshot is the reload-recovery view of a live session.
type SessionSnapshot struct {
	QuizID           string            `json:"quiz_id"`
	State            SessionState      `json:"state"`
	Reason           TerminationReason `json:"reason,omitempty"`
	Failure          FailureKind       `json:"failure,omitempty"`
	Candidate        Candidate         `json:"candidate"`
	Questions        []Question        `json:"questions,omitempty"`
	CurrentQuestion  int               `json:"current_question"`
	Answers          map[int]int       `json:"answers"`
	Violations       int               `json:"violations"`
	RemainingSeconds int               `json:"remaining_seconds"`
}

// WireAnswer is one answered question in the submission payload: a single-key
// object mapping the 1-based question number to the 1-based option position,
// both string-encoded. This is the exact shape the quiz service expects.
type WireAnswer map[string]string

// ViolationEvent is one integrity violation queued for durable audit.
type ViolationEvent struct {
	QuizID     string    `json:"quiz_id"`
	RegNo      string    `json:"reg_no"`
	Signal     string    `json:"signal"`
	Violations int       `json:"violations"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SubmissionEvent is one completed submission queued for durable audit.
type SubmissionEvent struct {
	QuizID      string    `json:"quiz_id"`
	RegNo       string    `json:"reg_no"`
	Score       int       `json:"score"`
	Reason      string    `json:"reason"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// RecordAnswerRequest is the payload for recording one answer.
type RecordAnswerRequest struct {
	QuestionIndex int `json:"question_index" binding:"min=0"`
	Option        int `json:"option" binding:"required,min=1"`
}

// NavigateRequest moves the current question cursor by ±1.
type NavigateRequest struct {
	Direction int `json:"direction" binding:"required,oneof=-1 1"`
}

// SignalRequest reports an environment signal over REST.
type SignalRequest struct {
	Type EnvironmentSignal `json:"type" binding:"required,oneof=fullscreen_granted fullscreen_exit hidden"`
}
