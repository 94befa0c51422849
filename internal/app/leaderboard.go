package app

import (
	"sort"

	"quizroom-service/internal/domain"
)

// leaderboardLocked builds the ranked standings: total score descending, ties
// broken by correct-answer count descending, then name for a stable order.
// Ranks are dense and 1-based; players tied on both keys share a rank.
// Caller holds rs.mu.
func (rs *roomState) leaderboardLocked() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(rs.players))
	for _, p := range rs.players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:       p.ID,
			Name:           p.Name,
			TotalScore:     p.TotalScore,
			CorrectAnswers: p.CorrectAnswers,
			ResponseTime:   p.LastResponseTime,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		if entries[i].CorrectAnswers != entries[j].CorrectAnswers {
			return entries[i].CorrectAnswers > entries[j].CorrectAnswers
		}
		return entries[i].Name < entries[j].Name
	})

	rank := 0
	for i := range entries {
		if i == 0 || entries[i].TotalScore != entries[i-1].TotalScore ||
			entries[i].CorrectAnswers != entries[i-1].CorrectAnswers {
			rank++
		}
		entries[i].Rank = rank
	}
	return entries
}
