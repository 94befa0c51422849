package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quizroom-service/internal/config"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/questionbank"
)

// ExerciseRepository loads authored exercise content (from cache/backing store).
type ExerciseRepository interface {
	GetExercises(ctx context.Context, ids []string) ([]domain.Exercise, error)
}

// CreateRoomRequest carries the host's room configuration.
type CreateRoomRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	MaxPlayers        int      `json:"maxPlayers"`
	QuestionsCount    int      `json:"questionsCount"`
	TimePerQuestion   int      `json:"timePerQuestion"`
	SelectedExercises []string `json:"selectedExercises"`
}

// Service wires the room manager to exercise content: creating a room fetches
// the selected exercises and runs them through the question bank.
type Service struct {
	rooms     *RoomManager
	exercises ExerciseRepository
	game      config.Game
	logger    *slog.Logger
	seed      func() int64
}

func NewService(rooms *RoomManager, exercises ExerciseRepository, game config.Game, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		rooms:     rooms,
		exercises: exercises,
		game:      game,
		logger:    logger,
		seed:      func() int64 { return time.Now().UnixNano() },
	}
}

// Rooms exposes the underlying manager for operations that need no exercise
// content (join, status, answers, analytics, export).
func (s *Service) Rooms() *RoomManager {
	return s.rooms
}

// CreateRoom builds questions from the selected exercises and registers a new
// ad-hoc room. Returns the room and the number of questions generated, which
// may be lower than expected because malformed exercises are skipped.
func (s *Service) CreateRoom(ctx context.Context, req CreateRoomRequest) (domain.Room, int, error) {
	questions, err := s.buildQuestions(ctx, req.SelectedExercises, req.TimePerQuestion, req.QuestionsCount)
	if err != nil {
		return domain.Room{}, 0, err
	}

	room, err := s.rooms.CreateRoom(RoomConfig{
		Title:           req.Title,
		Description:     req.Description,
		MaxPlayers:      req.MaxPlayers,
		TimePerQuestion: s.timeLimit(req.TimePerQuestion),
		Questions:       questions,
	})
	if err != nil {
		return domain.Room{}, 0, err
	}
	return room, len(questions), nil
}

// StartExercises recycles a fixed room with questions generated from a new
// exercise selection, then returns the refreshed room (with its new code).
func (s *Service) StartExercises(ctx context.Context, roomID string, exerciseIDs []string, timePerQuestion int) (domain.Room, int, error) {
	questions, err := s.buildQuestions(ctx, exerciseIDs, timePerQuestion, 0)
	if err != nil {
		return domain.Room{}, 0, err
	}
	room, err := s.rooms.ReplaceQuestions(roomID, questions)
	if err != nil {
		return domain.Room{}, 0, err
	}
	return room, len(questions), nil
}

func (s *Service) buildQuestions(ctx context.Context, exerciseIDs []string, timePerQuestion, limit int) ([]domain.Question, error) {
	var exercises []domain.Exercise
	if len(exerciseIDs) > 0 {
		var err error
		exercises, err = s.exercises.GetExercises(ctx, exerciseIDs)
		if err != nil {
			return nil, fmt.Errorf("load exercises: %w", err)
		}
	}

	bank := questionbank.New(questionbank.Options{
		TimeLimit: s.timeLimit(timePerQuestion),
		Points:    s.game.DefaultPoints,
		Seed:      s.seed(),
	})
	questions := bank.Generate(exercises)
	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}

func (s *Service) timeLimit(requested int) int {
	if requested > 0 {
		return requested
	}
	if s.game.DefaultTimeLimit > 0 {
		return s.game.DefaultTimeLimit
	}
	return 30
}
