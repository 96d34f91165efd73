package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrSessionNotFound is returned when a candidate has no live session for the
// requested quiz.
var ErrSessionNotFound = errors.New("no session for this quiz")

// Manager is the in-memory registry of live session controllers, at most one
// per candidate per quiz. Start is idempotent so a page reload re-enters the
// existing session instead of forking a second countdown.
type Manager struct {
	mu       sync.Mutex
	svc      QuizService
	store    AnswerStore
	audit    Auditor
	log      zerolog.Logger
	limit    int
	now      func() time.Time
	loc      *time.Location
	sessions map[string]*Controller
}

// NewManager creates a Manager.
func NewManager(svc QuizService, store AnswerStore, audit Auditor, violationLimit int, log zerolog.Logger) *Manager {
	return &Manager{
		svc:      svc,
		store:    store,
		audit:    audit,
		log:      log.With().Str("component", "session_manager").Logger(),
		limit:    violationLimit,
		sessions: make(map[string]*Controller),
	}
}

func sessionKey(regNo, quizID string) string {
	return regNo + "|" + quizID
}

// Start returns the candidate's live session for quizID, creating it (and
// performing the one-shot quiz load) if none exists. A terminal session is
// evicted and replaced so a new attempt window can begin cleanly.
func (m *Manager) Start(ctx context.Context, regNo, quizID, token string) (*Controller, error) {
	key := sessionKey(regNo, quizID)

	m.mu.Lock()
	if existing, ok := m.sessions[key]; ok && !existing.State().Terminal() {
		m.mu.Unlock()
		return existing, nil
	}
	m.mu.Unlock()

	// The quiz load happens outside the registry lock; other candidates
	// must not queue behind one slow upstream read.
	ctrl, err := Start(ctx, ControllerConfig{
		QuizID:         quizID,
		Token:          token,
		Service:        m.svc,
		Store:          m.store,
		Audit:          m.audit,
		ViolationLimit: m.limit,
		Log:            m.log,
		Now:            m.now,
		Location:       m.loc,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[key]; ok && !existing.State().Terminal() {
		// Lost a concurrent start race; keep the first session.
		ctrl.Close()
		return existing, nil
	}
	m.sessions[key] = ctrl
	m.log.Info().Str("reg_no", regNo).Str("quiz_id", quizID).Msg("Session started")
	return ctrl, nil
}

// Get returns the candidate's session for quizID, live or terminal.
func (m *Manager) Get(regNo, quizID string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctrl, ok := m.sessions[sessionKey(regNo, quizID)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// EvictTerminal drops sessions that reached a terminal state more than
// retention ago, returning how many were removed. Terminal sessions are kept
// around for the retention window so a double finish still answers "already
// submitted" instead of "no session".
func (m *Manager) EvictTerminal(retention time.Duration) int {
	nowFn := m.now
	if nowFn == nil {
		nowFn = time.Now
	}
	cutoff := nowFn().Add(-retention)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for key, ctrl := range m.sessions {
		if endedAt, ok := ctrl.TerminalSince(); ok && !endedAt.After(cutoff) {
			delete(m.sessions, key)
			evicted++
		}
	}
	return evicted
}

// Sweep evicts finished sessions every interval until ctx is cancelled.
func (m *Manager) Sweep(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictTerminal(retention); n > 0 {
				m.log.Debug().Int("evicted", n).Msg("Dropped finished sessions")
			}
		}
	}
}

// CloseAll stops every live countdown. Called on shutdown so no ticker
// goroutine acts on a stale session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ctrl := range m.sessions {
		ctrl.Close()
	}
}
