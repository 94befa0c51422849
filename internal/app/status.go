package app

import "quizroom-service/internal/domain"

// QuestionView is the player-facing shape of the current question. The answer
// key is withheld; it is only revealed per question in the submission result.
type QuestionView struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	TimeLimit   int      `json:"timeLimit"`
	Points      int      `json:"points"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
}

// Status is the poll view clients render from. CurrentQuestion is present only
// in the question phase; Leaderboard only in the leaderboard and finished
// phases.
type Status struct {
	RoomStatus           domain.RoomStatus         `json:"roomStatus"`
	GameState            domain.GameState          `json:"gameState"`
	IsActive             bool                      `json:"isActive"`
	CurrentQuestionIndex int                       `json:"currentQuestionIndex"`
	TotalQuestions       int                       `json:"totalQuestions"`
	TimeRemaining        int                       `json:"timeRemaining"`
	PlayerCount          int                       `json:"playerCount"`
	CurrentQuestion      *QuestionView             `json:"currentQuestion,omitempty"`
	Leaderboard          []domain.LeaderboardEntry `json:"leaderboard,omitempty"`
}

func (rs *roomState) status() Status {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	st := Status{
		RoomStatus:     rs.room.Status,
		GameState:      domain.StateWaiting,
		TotalQuestions: len(rs.room.Questions),
		PlayerCount:    len(rs.players),
	}
	sess := rs.session
	if sess == nil {
		return st
	}

	st.GameState = sess.state
	st.IsActive = sess.isActive
	st.CurrentQuestionIndex = sess.currentIndex
	st.TimeRemaining = sess.timeRemaining

	switch sess.state {
	case domain.StateQuestion:
		q := rs.room.Questions[sess.currentIndex]
		st.CurrentQuestion = &QuestionView{
			ID:          q.ID,
			Text:        q.Text,
			Options:     q.Options,
			TimeLimit:   q.TimeLimit,
			Points:      q.Points,
			ImageURL:    q.ImageURL,
			Instruction: q.Instruction,
		}
	case domain.StateLeaderboard, domain.StateFinished:
		st.Leaderboard = rs.leaderboardLocked()
	}
	return st
}
