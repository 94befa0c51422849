package domain

import (
	"encoding/json"
	"time"
)

// RoomStatus is the coarse lifecycle of a room, independent of the finer
// game-session phases.
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomActive   RoomStatus = "active"
	RoomFinished RoomStatus = "finished"
)

// GameState is the phase of a running game session.
type GameState string

const (
	StateWaiting      GameState = "waiting"
	StateStarting     GameState = "starting"
	StateQuestion     GameState = "question"
	StateAnswerReveal GameState = "answer_reveal"
	StateLeaderboard  GameState = "leaderboard"
	StateFinished     GameState = "finished"
)

// Room is one configured competition, joined by a short human-typable code.
type Room struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	MaxPlayers      int        `json:"maxPlayers"`
	TimePerQuestion int        `json:"timePerQuestion"`
	Questions       []Question `json:"-"`
	Status          RoomStatus `json:"status"`
	IsFixed         bool       `json:"isFixed,omitempty"`
	Grade           string     `json:"grade,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Question is one normalized quiz item derived from an authored exercise.
// CorrectAnswers holds option indices; multi-select questions list several.
type Question struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	CorrectAnswers []int    `json:"correctAnswers"`
	TimeLimit      int      `json:"timeLimit"`
	Points         int      `json:"points"`
	ImageURL       string   `json:"imageUrl,omitempty"`
	Instruction    string   `json:"instruction,omitempty"`
}

// Player is one participant inside a room. Names are unique per room.
type Player struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	JoinedAt         time.Time `json:"joinedAt"`
	Connected        bool      `json:"connected"`
	TotalScore       int       `json:"totalScore"`
	CorrectAnswers   int       `json:"correctAnswers"`
	LastResponseTime float64   `json:"lastResponseTime"`
}

// AnswerEvent is the immutable record of one scored submission.
type AnswerEvent struct {
	PlayerID      string    `json:"playerId"`
	PlayerName    string    `json:"playerName"`
	QuestionID    string    `json:"questionId"`
	QuestionIndex int       `json:"questionIndex"`
	Selected      []int     `json:"selected"`
	ResponseTime  float64   `json:"responseTime"`
	Correct       bool      `json:"correct"`
	Points        int       `json:"points"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// AnswerResult summarizes the outcome of a submission for the submitting
// player. The correct answer key is revealed here, per question, never before.
type AnswerResult struct {
	IsCorrect      bool  `json:"isCorrect"`
	CorrectAnswers []int `json:"correctAnswers"`
	PointsEarned   int   `json:"pointsEarned"`
}

// LeaderboardEntry is a snapshot-friendly ranked view of a player.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	PlayerID       string  `json:"playerId"`
	Name           string  `json:"name"`
	TotalScore     int     `json:"totalScore"`
	CorrectAnswers int     `json:"correctAnswers"`
	ResponseTime   float64 `json:"responseTime"`
}

// QuestionStats aggregates all submissions against one question.
type QuestionStats struct {
	QuestionID          string        `json:"questionId"`
	Text                string        `json:"text"`
	AnswerCount         int           `json:"answerCount"`
	CorrectCount        int           `json:"correctCount"`
	CorrectRate         float64       `json:"correctRate"`
	AverageResponseTime float64       `json:"averageResponseTime"`
	Answers             []AnswerEvent `json:"answers"`
}

// SessionAnalytics is the aggregate picture of one game session, recomputable
// at any point mid-game from the answer event log.
type SessionAnalytics struct {
	RoomID         string          `json:"roomId"`
	QuestionsAsked int             `json:"questionsAsked"`
	TotalAnswers   int             `json:"totalAnswers"`
	TotalCorrect   int             `json:"totalCorrect"`
	Questions      []QuestionStats `json:"questions"`
	StartedAt      time.Time       `json:"startedAt"`
	EndedAt        *time.Time      `json:"endedAt,omitempty"`
}

// ExerciseType tags the authored exercise variants the question bank understands.
type ExerciseType string

const (
	ExerciseQuiz           ExerciseType = "QUIZ"
	ExerciseMatching       ExerciseType = "MATCHING"
	ExerciseCategorization ExerciseType = "CATEGORIZATION"
)

// Exercise is an authored worksheet exercise as produced by the authoring
// subsystem. Content is type-specific and decoded by the question bank.
type Exercise struct {
	ID          string          `json:"id"`
	Type        ExerciseType    `json:"type"`
	Title       string          `json:"title"`
	Instruction string          `json:"instruction,omitempty"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Content     json.RawMessage `json:"content"`
}
