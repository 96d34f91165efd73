package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nagendrasomala/quizy-gateway/internal/middleware"
	"github.com/nagendrasomala/quizy-gateway/internal/model"
	"github.com/nagendrasomala/quizy-gateway/internal/session"
	"github.com/nagendrasomala/quizy-gateway/internal/store"
	"github.com/nagendrasomala/quizy-gateway/internal/validator"
	"github.com/rs/zerolog"
)

// stubQuizService serves a quiz whose window spans the whole current day, so
// handlers exercise the real session machinery without a clock fake.
type stubQuizService struct {
	mu        sync.Mutex
	loadErr   error
	submitErr error
	submits   int
}

func (s *stubQuizService) QuizDetails(_ context.Context, quizID, _ string) (*model.QuizBundle, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return &model.QuizBundle{
		Quiz: model.Quiz{
			ID:            quizID,
			Title:         "Operating Systems",
			ScheduledDate: time.Now().Format("2006-01-02"),
			StartTime:     "00:00",
			EndTime:       "23:59",
			Questions: []model.Question{
				{Index: 0, Text: "Q1", Options: []string{"a", "b"}, CorrectAnswer: 1},
				{Index: 1, Text: "Q2", Options: []string{"a", "b"}, CorrectAnswer: 2},
			},
		},
		Candidate: model.Candidate{Name: "Asha", RegNo: "21BCE100"},
	}, nil
}

func (s *stubQuizService) SubmitQuiz(_ context.Context, _, _ string, _ []model.WireAnswer, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submits++
	return nil
}

// fakeAuth stands in for the JWT middleware: every request arrives as the
// same authenticated candidate.
func fakeAuth(regNo string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &middleware.Claims{
			Role:  middleware.RoleCandidate,
			Name:  "Asha",
			RegNo: regNo,
		})
		c.Set(middleware.ContextKeyToken, "tok")
		c.Next()
	}
}

type testEnv struct {
	router  *gin.Engine
	svc     *stubQuizService
	manager *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Setup()

	svc := &stubQuizService{}
	manager := session.NewManager(svc, store.NewMemoryStore(), nil, 2, zerolog.Nop())
	t.Cleanup(manager.CloseAll)

	h := NewSessionHandler(manager)
	r := gin.New()
	grp := r.Group("/api/v1/sessions", fakeAuth("21BCE100"))
	grp.POST("/:quiz_id/start", h.Start)
	grp.GET("/:quiz_id", h.State)
	grp.POST("/:quiz_id/answers", h.RecordAnswer)
	grp.POST("/:quiz_id/navigate", h.Navigate)
	grp.POST("/:quiz_id/events", h.ReportSignal)
	grp.POST("/:quiz_id/finish", h.Finish)

	return &testEnv{router: r, svc: svc, manager: manager}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) startSession(t *testing.T) {
	t.Helper()
	if w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/start", ""); w.Code != http.StatusOK {
		t.Fatalf("start session: status %d, body %s", w.Code, w.Body)
	}
}

func (e *testEnv) activate(t *testing.T) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/events", `{"type":"fullscreen_granted"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("grant fullscreen: status %d, body %s", w.Code, w.Body)
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body)
	}
	return env
}

func assertErrCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body)
	}
	env := decode(t, w)
	if env.Error == nil || env.Error.Code != code {
		t.Fatalf("error code = %+v, want %s", env.Error, code)
	}
}

func TestStart_ReturnsSanitizedSnapshot(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/start", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	var snap model.SessionSnapshot
	if err := json.Unmarshal(decode(t, w).Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.State != model.StateAwaitingFullscreen {
		t.Fatalf("state = %s, want AWAITING_FULLSCREEN", snap.State)
	}
	if snap.Candidate.RegNo != "21BCE100" {
		t.Fatalf("candidate = %+v", snap.Candidate)
	}
	for _, q := range snap.Questions {
		if q.CorrectAnswer != 0 {
			t.Fatalf("correct answer leaked in snapshot: %+v", q)
		}
	}
	if strings.Contains(w.Body.String(), "correct_answer") {
		t.Fatalf("correct_answer key leaked: %s", w.Body)
	}
}

func TestStart_UpstreamFailure(t *testing.T) {
	e := newTestEnv(t)
	e.svc.loadErr = context.DeadlineExceeded

	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/start", "")
	assertErrCode(t, w, http.StatusBadGateway, "QUIZ_UNAVAILABLE")
}

func TestState_UnknownSession(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/v1/sessions/quiz-42", "")
	assertErrCode(t, w, http.StatusNotFound, "SESSION_NOT_FOUND")
}

func TestRecordAnswer_HappyPathAndSnapshotRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t)
	e.activate(t)

	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/answers", `{"question_index":1,"option":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}

	w = e.do(t, http.MethodGet, "/api/v1/sessions/quiz-42", "")
	var snap model.SessionSnapshot
	if err := json.Unmarshal(decode(t, w).Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Answers[1] != 2 {
		t.Fatalf("answers = %v, want 1 -> 2", snap.Answers)
	}
}

func TestRecordAnswer_BeforeFullscreenIsConflict(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t)

	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/answers", `{"question_index":0,"option":1}`)
	assertErrCode(t, w, http.StatusConflict, "SESSION_NOT_INTERACTIVE")
}

func TestRecordAnswer_ValidationFailure(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t)
	e.activate(t)

	// Option is 1-based; zero fails `required,min=1`.
	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/answers", `{"question_index":0,"option":0}`)
	assertErrCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestRecordAnswer_UnknownQuestion(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t)
	e.activate(t)

	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/answers", `{"question_index":7,"option":1}`)
	assertErrCode(t, w, http.StatusBadRequest, "UNKNOWN_QUESTION")
}

func TestNavigate_Clamped(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t)
	e.activate(t)

	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/navigate", `{"direction":-1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var out struct {
		Current int `json:"current_question"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Current != 0 {
		t.Fatalf("current = %d, want clamped 0", out.Current)
	}

	w = e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/navigate", `{"direction":2}`)
	assertErrCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestSignal_HiddenEscalatesToTermination(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t)
	e.activate(t)

	var out struct {
		Violations int  `json:"violations"`
		Terminated bool `json:"terminated"`
	}

	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/events", `{"type":"hidden"}`)
	if err := json.Unmarshal(decode(t, w).Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Violations != 1 || out.Terminated {
		t.Fatalf("first hidden = %+v, want violations 1, not terminated", out)
	}

	w = e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/events", `{"type":"hidden"}`)
	if err := json.Unmarshal(decode(t, w).Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Violations != 2 || !out.Terminated {
		t.Fatalf("second hidden = %+v, want violations 2, terminated", out)
	}
}

func TestSignal_UnknownTypeRejected(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t)

	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/events", `{"type":"devtools_open"}`)
	assertErrCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestFinish_SubmitsOnceThenConflicts(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t)
	e.activate(t)

	e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/answers", `{"question_index":0,"option":1}`)

	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/finish", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var out struct {
		Score int `json:"score"`
	}
	if err := json.Unmarshal(decode(t, w).Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Score != 1 {
		t.Fatalf("score = %d, want 1", out.Score)
	}

	w = e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/finish", "")
	assertErrCode(t, w, http.StatusConflict, "ALREADY_SUBMITTED")
	if e.svc.submits != 1 {
		t.Fatalf("upstream submits = %d, want 1", e.svc.submits)
	}
}

func TestFinish_UpstreamFailureIsRetryable(t *testing.T) {
	e := newTestEnv(t)
	e.startSession(t)
	e.activate(t)

	e.svc.submitErr = context.DeadlineExceeded
	w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/finish", "")
	assertErrCode(t, w, http.StatusBadGateway, "SUBMIT_FAILED")

	e.svc.submitErr = nil
	if w := e.do(t, http.MethodPost, "/api/v1/sessions/quiz-42/finish", ""); w.Code != http.StatusOK {
		t.Fatalf("retry status = %d, body %s", w.Code, w.Body)
	}
}
