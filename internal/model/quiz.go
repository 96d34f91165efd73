package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Question is a single multiple-choice question. Option order is significant:
// answers are recorded as the option's 1-based position, never its text.
type Question struct {
	Index         int      `json:"index"`
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer,omitempty"` // 1-based option position
}

// Sanitized returns a copy safe to hand to the candidate's browser.
func (q Question) Sanitized() Question {
	q.CorrectAnswer = 0
	return q
}

// Candidate is the identity snapshot taken at session load. It is never
// re-fetched; the gateway uses it for watermarking metadata and audit rows.
type Candidate struct {
	Name  string `json:"name"`
	RegNo string `json:"reg_no"`
}

// Quiz is the static definition fetched once from the quiz-content service.
type Quiz struct {
	ID            string     `json:"quiz_id"`
	Title         string     `json:"title,omitempty"`
	ScheduledDate string     `json:"scheduled_date"` // YYYY-MM-DD
	StartTime     string     `json:"start_time"`     // HH:mm wall clock
	EndTime       string     `json:"end_time"`       // HH:mm wall clock
	FacultyName   string     `json:"faculty_name,omitempty"`
	Questions     []Question `json:"questions"`
}

// Window combines ScheduledDate with the two wall-clock times into absolute
// instants in loc. Both times fall on the scheduled date.
func (q Quiz) Window(loc *time.Location) (start, end time.Time, err error) {
	day, err := parseDay(q.ScheduledDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse scheduled date: %w", err)
	}

	start, err = atWallClock(day, q.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start time: %w", err)
	}
	end, err = atWallClock(day, q.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse end time: %w", err)
	}
	return start, end, nil
}

func parseDay(raw string, loc *time.Location) (time.Time, error) {
	// The quiz service emits either a bare date or a full RFC3339 timestamp
	// depending on revision; accept both and keep only the calendar day.
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func atWallClock(day time.Time, hhmm string) (time.Time, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("malformed wall-clock time %q", hhmm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed minute in %q", hhmm)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("wall-clock time %q out of range", hhmm)
	}
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute), nil
}

// QuizBundle is everything the loader fetches in its single read call.
type QuizBundle struct {
	Quiz      Quiz      `json:"quiz"`
	Candidate Candidate `json:"candidate"`
}
