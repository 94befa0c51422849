package app

import (
	"encoding/csv"
	"fmt"
	"strings"

	"quizroom-service/internal/domain"
)

// ExportCSV renders the room's results as a two-table CSV document: one row
// per player, a blank line, then one row per question. The view is pure;
// repeated calls with no new answers yield identical output.
func (m *RoomManager) ExportCSV(roomID string) (string, error) {
	rs, err := m.state(roomID)
	if err != nil {
		return "", err
	}

	rs.mu.Lock()
	entries := rs.leaderboardLocked()
	var stats domain.SessionAnalytics
	if rs.analytics != nil {
		stats = rs.analytics.aggregate(rs.room.Questions)
	}
	rs.mu.Unlock()

	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write([]string{"name", "totalScore", "correctAnswers", "avgResponseTime", "accuracy"})
	for _, e := range entries {
		accuracy := 0.0
		if stats.QuestionsAsked > 0 {
			accuracy = float64(e.CorrectAnswers) / float64(stats.QuestionsAsked) * 100
		}
		_ = w.Write([]string{
			e.Name,
			fmt.Sprintf("%d", e.TotalScore),
			fmt.Sprintf("%d", e.CorrectAnswers),
			fmt.Sprintf("%.2f", meanResponseTime(stats, e.PlayerID)),
			fmt.Sprintf("%.1f%%", accuracy),
		})
	}
	w.Flush()

	sb.WriteString("\n")

	w = csv.NewWriter(&sb)
	_ = w.Write([]string{"question", "text", "correctRate", "avgResponseTime", "answerCount"})
	for i, q := range stats.Questions {
		_ = w.Write([]string{
			fmt.Sprintf("%d", i+1),
			q.Text,
			fmt.Sprintf("%.1f%%", q.CorrectRate*100),
			fmt.Sprintf("%.2f", q.AverageResponseTime),
			fmt.Sprintf("%d", q.AnswerCount),
		})
	}
	w.Flush()

	return sb.String(), nil
}

// meanResponseTime averages one player's response times across the whole
// session from the raw answer log.
func meanResponseTime(stats domain.SessionAnalytics, playerID string) float64 {
	var total float64
	count := 0
	for _, q := range stats.Questions {
		for _, e := range q.Answers {
			if e.PlayerID == playerID {
				total += e.ResponseTime
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
