// Package session implements the proctored quiz-taking session: one candidate,
// one quiz window, one irrevocable scored submission. The controller owns the
// whole lifecycle — load, fullscreen gating, countdown, violation policy,
// answer persistence and submit — behind a single centralized transition
// function, so racing termination triggers resolve first-writer-wins instead
// of emerging from scattered flags.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nagendrasomala/quizy-gateway/internal/config"
	"github.com/nagendrasomala/quizy-gateway/internal/model"
	"github.com/rs/zerolog"
)

// QuizService is the remote quiz-content service the loader reads from and
// the submitter writes to.
type QuizService interface {
	QuizDetails(ctx context.Context, quizID, token string) (*model.QuizBundle, error)
	SubmitQuiz(ctx context.Context, quizID, token string, answers []model.WireAnswer, score int) error
}

// AnswerStore is the durable answer-record port. The controller never touches
// storage directly; production wires Redis, tests wire an in-memory fake.
type AnswerStore interface {
	Load(ctx context.Context, key string) (map[int]int, error)
	Save(ctx context.Context, key string, answers map[int]int) error
	Clear(ctx context.Context, key string) error
}

// Auditor receives integrity and submission events for durable audit. All
// methods must be non-blocking; implementations queue and return.
type Auditor interface {
	Violation(ev model.ViolationEvent)
	Submission(ev model.SubmissionEvent)
}

// Notifier receives session events destined for the candidate's browser.
type Notifier interface {
	Warning(violations int)
	Terminated(reason model.TerminationReason)
	Graded(score int)
}

// Session errors.
var (
	ErrNoQuizID         = errors.New("quiz id is required")
	ErrQuizEnded        = errors.New("quiz window has already closed")
	ErrAlreadySubmitted = errors.New("session has already been submitted")
	ErrSubmitInFlight   = errors.New("a submission is already in flight")
	ErrNotInteractive   = errors.New("session is not accepting interaction")
	ErrUnknownQuestion  = errors.New("question index out of range")
)

// ControllerConfig carries the dependencies of one session.
type ControllerConfig struct {
	QuizID string
	// Token is the candidate's bearer token; it authorizes both upstream
	// calls the session makes.
	Token          string
	Service        QuizService
	Store          AnswerStore
	Audit          Auditor // optional
	ViolationLimit int
	Log            zerolog.Logger
	Now            func() time.Time // optional, defaults to time.Now
	Location       *time.Location   // optional, defaults to time.Local
}

// Controller is the state machine for one quiz-taking session.
type Controller struct {
	mu sync.Mutex

	// persistMu serializes store writes with the mutations they snapshot.
	// Holding only mu while mutating and then saving outside it would let
	// two answer recordings reach the store in the opposite order of their
	// mutations, leaving a stale record behind for the restore paths.
	// Lock order: persistMu before mu, never the reverse.
	persistMu sync.Mutex

	svc   QuizService
	store AnswerStore
	audit Auditor
	log   zerolog.Logger
	now   func() time.Time
	loc   *time.Location

	quizID         string
	token          string
	violationLimit int

	quiz        model.Quiz
	candidate   model.Candidate
	windowStart time.Time
	windowEnd   time.Time

	state      model.SessionState
	reason     model.TerminationReason
	failure    model.FailureKind
	answers    map[int]int
	current    int
	violations int
	submitting bool
	expired    bool
	endedAt    time.Time

	subs    map[uint64]Notifier
	nextSub uint64

	done      chan struct{}
	closeOnce sync.Once
}

// Start loads the quiz definition, restores any persisted answers and begins
// the countdown. The load is one-shot: any failure aborts session startup and
// no Controller is returned.
func Start(ctx context.Context, cfg ControllerConfig) (*Controller, error) {
	if cfg.QuizID == "" {
		return nil, ErrNoQuizID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ViolationLimit <= 0 {
		cfg.ViolationLimit = 2
	}

	c := &Controller{
		svc:            cfg.Service,
		store:          cfg.Store,
		audit:          cfg.Audit,
		log:            cfg.Log.With().Str("component", "session").Str("quiz_id", cfg.QuizID).Logger(),
		now:            cfg.Now,
		loc:            cfg.Location,
		quizID:         cfg.QuizID,
		token:          cfg.Token,
		violationLimit: cfg.ViolationLimit,
		state:          model.StateLoading,
		answers:        make(map[int]int),
		subs:           make(map[uint64]Notifier),
		done:           make(chan struct{}),
	}

	if err := c.load(ctx); err != nil {
		return nil, err
	}

	go c.runCountdown()
	return c, nil
}

// load performs the single quiz-details read and derives the schedule window.
func (c *Controller) load(ctx context.Context) error {
	bundle, err := c.svc.QuizDetails(ctx, c.quizID, c.token)
	if err != nil {
		c.failNow(model.FailureLoad)
		return fmt.Errorf("load session: %w", err)
	}

	start, end, err := bundle.Quiz.Window(c.loc)
	if err != nil {
		c.failNow(model.FailureLoad)
		return fmt.Errorf("load session: %w", err)
	}

	if !c.now().Before(end) {
		c.failNow(model.FailureQuizEnded)
		return ErrQuizEnded
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.quiz = bundle.Quiz
	c.candidate = bundle.Candidate
	c.windowStart = start
	c.windowEnd = end

	// A persisted record from an interrupted attempt resumes silently. A
	// missing or unreadable record just means a fresh attempt.
	if saved, err := c.store.Load(ctx, c.answersKeyLocked()); err == nil && len(saved) > 0 {
		c.answers = saved
		c.log.Info().Int("answers", len(saved)).Msg("Restored persisted answers")
	}

	c.transitionLocked(model.StateAwaitingFullscreen, "", "")
	return nil
}

func (c *Controller) failNow(kind model.FailureKind) {
	c.mu.Lock()
	c.transitionLocked(model.StateFailed, "", kind)
	c.mu.Unlock()
	c.Close()
}

// transitionLocked is the only place session state changes. It returns false
// when the transition is not legal from the current state, which is what makes
// racing termination requests (timer expiry vs. violation threshold vs. manual
// finish) resolve first-writer-wins.
func (c *Controller) transitionLocked(to model.SessionState, reason model.TerminationReason, failure model.FailureKind) bool {
	switch to {
	case model.StateAwaitingFullscreen:
		// Entered from LOADING at startup, or from ACTIVE on the
		// fullscreen-exit hard reset.
		if c.state != model.StateLoading && c.state != model.StateActive {
			return false
		}
	case model.StateActive:
		if c.state != model.StateAwaitingFullscreen {
			return false
		}
	case model.StateTerminating:
		if c.state != model.StateActive && c.state != model.StateAwaitingFullscreen {
			return false
		}
		c.reason = reason
	case model.StateSubmitted:
		if c.state != model.StateActive && c.state != model.StateTerminating {
			return false
		}
	case model.StateFailed:
		if c.state.Terminal() {
			return false
		}
		c.failure = failure
	default:
		return false
	}

	c.log.Debug().
		Str("from", string(c.state)).
		Str("to", string(to)).
		Str("reason", string(reason)).
		Msg("Session transition")
	c.state = to
	if to.Terminal() {
		c.endedAt = c.now()
	}

	if to == model.StateTerminating {
		c.notifyLocked(func(n Notifier) { n.Terminated(reason) })
	}
	return true
}

// GrantFullscreen unblocks the question view after the candidate's one
// explicit fullscreen action.
func (c *Controller) GrantFullscreen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.transitionLocked(model.StateActive, "", "") {
		return ErrNotInteractive
	}
	return nil
}

// ReportHidden records one visibility-loss event. Violations are monotonic and
// never decrement; reaching the limit terminates the session with reason
// tab-switch through the same path as timer expiry.
func (c *Controller) ReportHidden(ctx context.Context) (violations int, terminated bool) {
	c.mu.Lock()
	if c.state != model.StateActive && c.state != model.StateAwaitingFullscreen {
		v := c.violations
		c.mu.Unlock()
		return v, false
	}

	c.violations++
	violations = c.violations

	ev := model.ViolationEvent{
		QuizID:     c.quizID,
		RegNo:      c.candidate.RegNo,
		Signal:     string(model.SignalHidden),
		Violations: violations,
		RecordedAt: c.now(),
	}

	if violations >= c.violationLimit {
		terminated = c.transitionLocked(model.StateTerminating, model.ReasonTabSwitch, "")
	} else {
		c.notifyLocked(func(n Notifier) { n.Warning(violations) })
	}
	audit := c.audit
	c.mu.Unlock()

	if audit != nil {
		audit.Violation(ev)
	}
	return violations, terminated
}

// ReportFullscreenExit applies the hard-reset policy: the candidate is pushed
// back behind the fullscreen gate, in-memory session state is rebuilt from the
// persisted answer record, and remaining time re-derives from the wall-clock
// window rather than any cached countdown. This is deliberate deterrence, not
// a counted violation; the policy choice is documented in DESIGN.md.
func (c *Controller) ReportFullscreenExit(ctx context.Context) error {
	// Taking persistMu first lets any in-flight answer save land before the
	// restore reads, so the rebuilt mapping cannot miss it.
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if c.state != model.StateActive {
		c.mu.Unlock()
		return ErrNotInteractive
	}

	c.transitionLocked(model.StateAwaitingFullscreen, "", "")
	c.violations = 0
	c.current = 0
	c.answers = make(map[int]int)
	key := c.answersKeyLocked()

	ev := model.ViolationEvent{
		QuizID:     c.quizID,
		RegNo:      c.candidate.RegNo,
		Signal:     string(model.SignalFullscreenExit),
		Violations: c.violations,
		RecordedAt: c.now(),
	}
	audit := c.audit
	c.mu.Unlock()

	if audit != nil {
		audit.Violation(ev)
	}

	saved, err := c.store.Load(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Msg("Answer restore after fullscreen exit failed")
		return nil
	}

	c.mu.Lock()
	if len(saved) > 0 && c.state == model.StateAwaitingFullscreen {
		c.answers = saved
	}
	c.mu.Unlock()
	return nil
}

// RecordAnswer overwrites the answer for one question and persists the full
// mapping. Option positions are 1-based; range-checking the option is the
// caller's contract.
func (c *Controller) RecordAnswer(ctx context.Context, questionIndex, option int) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if c.state != model.StateActive {
		c.mu.Unlock()
		return ErrNotInteractive
	}
	if questionIndex < 0 || questionIndex >= len(c.quiz.Questions) {
		c.mu.Unlock()
		return ErrUnknownQuestion
	}

	c.answers[questionIndex] = option
	snapshot := copyAnswers(c.answers)
	key := c.answersKeyLocked()
	c.mu.Unlock()

	if err := c.store.Save(ctx, key, snapshot); err != nil {
		return fmt.Errorf("persist answers: %w", err)
	}
	return nil
}

// Navigate moves the current question cursor by direction (±1), clamped to
// the question range. Returns the resulting index.
func (c *Controller) Navigate(direction int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != model.StateActive {
		return c.current
	}
	next := c.current + direction
	if next < 0 {
		next = 0
	}
	if max := len(c.quiz.Questions) - 1; next > max {
		next = max
	}
	c.current = next
	return c.current
}

// Submit performs the one-shot scored submission. The first caller wins:
// concurrent calls while one is pending, and any call after success, perform
// no network call. A failed submission leaves the session (and the persisted
// answers) intact so the candidate can retry manually.
func (c *Controller) Submit(ctx context.Context, reason model.TerminationReason) (int, error) {
	c.mu.Lock()
	if c.state == model.StateSubmitted {
		c.mu.Unlock()
		return 0, ErrAlreadySubmitted
	}
	if c.submitting {
		c.mu.Unlock()
		return 0, ErrSubmitInFlight
	}
	if c.state != model.StateActive && c.state != model.StateTerminating {
		c.mu.Unlock()
		return 0, ErrNotInteractive
	}

	// A session already terminating keeps its first-writer reason; a manual
	// finish from ACTIVE submits directly.
	if c.state == model.StateTerminating {
		reason = c.reason
	}

	c.submitting = true
	score := c.scoreLocked()
	answers := c.wireAnswersLocked()
	key := c.answersKeyLocked()
	quizID, token := c.quizID, c.token
	ev := model.SubmissionEvent{
		QuizID:      quizID,
		RegNo:       c.candidate.RegNo,
		Score:       score,
		Reason:      string(reason),
		SubmittedAt: c.now(),
	}
	c.mu.Unlock()

	err := c.svc.SubmitQuiz(ctx, quizID, token, answers, score)

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.mu.Unlock()
		return 0, err
	}
	c.transitionLocked(model.StateSubmitted, "", "")
	c.notifyLocked(func(n Notifier) { n.Graded(score) })
	audit := c.audit
	c.mu.Unlock()

	c.Close()

	// The persisted record only exists for crash recovery; after an
	// acknowledged submission it must not survive to taint a later quiz.
	// persistMu makes the delete wait out any answer save still in flight.
	c.persistMu.Lock()
	if clearErr := c.store.Clear(ctx, key); clearErr != nil {
		c.log.Warn().Err(clearErr).Msg("Clearing persisted answers failed")
	}
	c.persistMu.Unlock()
	if audit != nil {
		audit.Submission(ev)
	}

	c.log.Info().Int("score", score).Str("reason", string(reason)).Msg("Quiz submitted")
	return score, nil
}

// scoreLocked counts answers matching the correct option position. Unanswered
// questions count as wrong; the loop never skips or throws.
func (c *Controller) scoreLocked() int {
	score := 0
	for _, q := range c.quiz.Questions {
		if selected, ok := c.answers[q.Index]; ok && selected == q.CorrectAnswer {
			score++
		}
	}
	return score
}

// wireAnswersLocked converts the answer mapping to the quiz service's wire
// format: one single-key object per answered question, 1-based question
// number mapped to the string-encoded 1-based option position, in question
// order. Unanswered questions are absent.
func (c *Controller) wireAnswersLocked() []model.WireAnswer {
	indexes := make([]int, 0, len(c.answers))
	for idx := range c.answers {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]model.WireAnswer, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, model.WireAnswer{
			strconv.Itoa(idx + 1): strconv.Itoa(c.answers[idx]),
		})
	}
	return out
}

// Snapshot returns the reload-recovery view of the session. Questions are
// sanitized: correct answers never leave the controller.
func (c *Controller) Snapshot() model.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	questions := make([]model.Question, len(c.quiz.Questions))
	for i, q := range c.quiz.Questions {
		questions[i] = q.Sanitized()
	}

	return model.SessionSnapshot{
		QuizID:           c.quizID,
		State:            c.state,
		Reason:           c.reason,
		Failure:          c.failure,
		Candidate:        c.candidate,
		Questions:        questions,
		CurrentQuestion:  c.current,
		Answers:          copyAnswers(c.answers),
		Violations:       c.violations,
		RemainingSeconds: int(c.remainingLocked() / time.Second),
	}
}

// State returns the current session state.
func (c *Controller) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TerminalSince reports when the session reached a terminal state; ok is
// false while the session is still live.
func (c *Controller) TerminalSince() (at time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Terminal() {
		return time.Time{}, false
	}
	return c.endedAt, true
}

// Subscribe registers a notifier for session events and returns its
// deregistration func. Callers must cancel when their connection goes away so
// no listener outlives the session view it serves.
func (c *Controller) Subscribe(n Notifier) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = n
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// notifyLocked fans an event out to subscribers without holding them on the
// session lock: a slow WebSocket write must not stall the state machine.
func (c *Controller) notifyLocked(f func(Notifier)) {
	for _, n := range c.subs {
		go f(n)
	}
}

// Close stops the countdown goroutine. Idempotent; safe from any state.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Controller) answersKeyLocked() string {
	return config.CacheKey.CandidateAnswersKey(c.candidate.RegNo, c.quizID)
}

func copyAnswers(in map[int]int) map[int]int {
	out := make(map[int]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
