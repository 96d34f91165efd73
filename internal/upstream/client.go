// Package upstream is the HTTP client for the remote quiz-content service.
// The gateway issues exactly two kinds of calls against it: one quiz-details
// read at session start and one scored submission at session end, both
// authorized with the candidate's own bearer token.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nagendrasomala/quizy-gateway/internal/model"
	"github.com/rs/zerolog"
)

// Client talks to the quiz-content service.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a Client. timeout applies to quiz-details reads only; submissions
// run on the caller's context so a slow submit is surfaced to the candidate
// instead of being cut off mid-flight.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "quiz_api").Logger(),
	}
}

type quizDetailsRequest struct {
	QuizID string `json:"quizId"`
}

type quizDetailsResponse struct {
	Quiz struct {
		Questions []struct {
			QuestionText  string   `json:"questionText"`
			Options       []string `json:"options"`
			CorrectAnswer int      `json:"correctAnswer"`
		} `json:"questions"`
		Title         string `json:"title"`
		ScheduledDate string `json:"scheduledDate"`
		StartTime     string `json:"startTime"`
		EndTime       string `json:"endTime"`
		Faculty       struct {
			Name string `json:"name"`
		} `json:"faculty"`
	} `json:"quiz"`
	Student struct {
		Name  string `json:"name"`
		RegNo string `json:"regNo"`
	} `json:"student"`
}

// QuizDetails performs the one-shot session-load read. It is never retried by
// the gateway: quiz availability is time-boxed and stale reads would corrupt
// the duration math downstream.
func (c *Client) QuizDetails(ctx context.Context, quizID, token string) (*model.QuizBundle, error) {
	var resp quizDetailsResponse
	if err := c.post(ctx, "/quiz/quiz-details", token, quizDetailsRequest{QuizID: quizID}, &resp); err != nil {
		return nil, fmt.Errorf("quiz details: %w", err)
	}

	questions := make([]model.Question, len(resp.Quiz.Questions))
	for i, q := range resp.Quiz.Questions {
		questions[i] = model.Question{
			Index:         i,
			Text:          q.QuestionText,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		}
	}

	return &model.QuizBundle{
		Quiz: model.Quiz{
			ID:            quizID,
			Title:         resp.Quiz.Title,
			ScheduledDate: resp.Quiz.ScheduledDate,
			StartTime:     resp.Quiz.StartTime,
			EndTime:       resp.Quiz.EndTime,
			FacultyName:   resp.Quiz.Faculty.Name,
			Questions:     questions,
		},
		Candidate: model.Candidate{
			Name:  resp.Student.Name,
			RegNo: resp.Student.RegNo,
		},
	}, nil
}

type submitQuizRequest struct {
	QuizID  string             `json:"quizId"`
	Answers []model.WireAnswer `json:"answers"`
	Score   int                `json:"score"`
}

// SubmitQuiz performs the single irrevocable scored submission.
func (c *Client) SubmitQuiz(ctx context.Context, quizID, token string, answers []model.WireAnswer, score int) error {
	if answers == nil {
		answers = []model.WireAnswer{}
	}
	if err := c.post(ctx, "/quiz/submit-quiz", token, submitQuizRequest{QuizID: quizID, Answers: answers, Score: score}, nil); err != nil {
		return fmt.Errorf("submit quiz: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, token string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Bytes("body", snippet).
			Msg("Quiz API returned non-200")
		return fmt.Errorf("quiz API %s: unexpected status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
