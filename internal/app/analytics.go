package app

import (
	"time"

	"quizroom-service/internal/domain"
)

// recorder accumulates the append-only answer log for one game session. The
// aggregate view is always a pure fold over the log, so it can be queried
// mid-game for a partial picture. Callers serialize access via the room mutex.
type recorder struct {
	roomID         string
	startedAt      time.Time
	endedAt        *time.Time
	questionsAsked int
	events         []domain.AnswerEvent
}

func newRecorder(roomID string, startedAt time.Time) *recorder {
	return &recorder{roomID: roomID, startedAt: startedAt}
}

func (r *recorder) questionAsked() {
	r.questionsAsked++
}

func (r *recorder) record(event domain.AnswerEvent) {
	r.events = append(r.events, event)
}

func (r *recorder) finish(at time.Time) {
	if r.endedAt == nil {
		r.endedAt = &at
	}
}

// aggregate folds the event log into per-session and per-question statistics.
// Only questions asked so far contribute rows.
func (r *recorder) aggregate(questions []domain.Question) domain.SessionAnalytics {
	byIndex := make(map[int][]domain.AnswerEvent)
	totalCorrect := 0
	for _, e := range r.events {
		byIndex[e.QuestionIndex] = append(byIndex[e.QuestionIndex], e)
		if e.Correct {
			totalCorrect++
		}
	}

	asked := r.questionsAsked
	if asked > len(questions) {
		asked = len(questions)
	}
	stats := make([]domain.QuestionStats, 0, asked)
	for i := 0; i < asked; i++ {
		events := byIndex[i]
		qs := domain.QuestionStats{
			QuestionID:  questions[i].ID,
			Text:        questions[i].Text,
			AnswerCount: len(events),
			Answers:     append([]domain.AnswerEvent(nil), events...),
		}
		var totalTime float64
		for _, e := range events {
			if e.Correct {
				qs.CorrectCount++
			}
			totalTime += e.ResponseTime
		}
		if len(events) > 0 {
			qs.CorrectRate = float64(qs.CorrectCount) / float64(len(events))
			qs.AverageResponseTime = totalTime / float64(len(events))
		}
		stats = append(stats, qs)
	}

	return domain.SessionAnalytics{
		RoomID:         r.roomID,
		QuestionsAsked: asked,
		TotalAnswers:   len(r.events),
		TotalCorrect:   totalCorrect,
		Questions:      stats,
		StartedAt:      r.startedAt,
		EndedAt:        r.endedAt,
	}
}
