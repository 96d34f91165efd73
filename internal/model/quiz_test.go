package model

import (
	"testing"
	"time"
)

func TestQuizWindow(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		startTime string
		endTime   string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "bare date",
			date:      "2026-03-10",
			startTime: "10:00",
			endTime:   "10:30",
			wantStart: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC),
		},
		{
			name:      "rfc3339 date keeps only the calendar day",
			date:      "2026-03-10T18:45:00Z",
			startTime: "09:15",
			endTime:   "11:45",
			wantStart: time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 10, 11, 45, 0, 0, time.UTC),
		},
		{
			name:      "midnight-adjacent window",
			date:      "2026-03-10",
			startTime: "23:00",
			endTime:   "23:59",
			wantStart: time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC),
		},
		{name: "unrecognized date", date: "10/03/2026", startTime: "10:00", endTime: "10:30", wantErr: true},
		{name: "missing colon", date: "2026-03-10", startTime: "1000", endTime: "10:30", wantErr: true},
		{name: "hour out of range", date: "2026-03-10", startTime: "24:00", endTime: "10:30", wantErr: true},
		{name: "minute out of range", date: "2026-03-10", startTime: "10:00", endTime: "10:60", wantErr: true},
		{name: "non-numeric minute", date: "2026-03-10", startTime: "10:xx", endTime: "10:30", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Quiz{ScheduledDate: tc.date, StartTime: tc.startTime, EndTime: tc.endTime}
			start, end, err := q.Window(time.UTC)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Window: %v", err)
			}
			if !start.Equal(tc.wantStart) || !end.Equal(tc.wantEnd) {
				t.Fatalf("Window = (%v, %v), want (%v, %v)", start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestQuestionSanitized(t *testing.T) {
	q := Question{Index: 2, Text: "Q", Options: []string{"a", "b"}, CorrectAnswer: 2}
	s := q.Sanitized()
	if s.CorrectAnswer != 0 {
		t.Fatalf("Sanitized kept CorrectAnswer = %d", s.CorrectAnswer)
	}
	if q.CorrectAnswer != 2 {
		t.Fatal("Sanitized must not mutate the original")
	}
	if s.Index != 2 || s.Text != "Q" || len(s.Options) != 2 {
		t.Fatalf("Sanitized dropped fields: %+v", s)
	}
}
