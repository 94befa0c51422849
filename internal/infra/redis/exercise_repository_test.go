package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizroom-service/internal/domain"
)

func TestExerciseRepositoryFillsCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	loader := &countingLoader{exercise: domain.Exercise{
		ID:      "ex-1",
		Type:    domain.ExerciseQuiz,
		Content: []byte(`{"questions":[{"question":"q","options":["a","b"],"correctIndex":0}]}`),
	}}
	repo := NewExerciseRepository(client, loader, 5*time.Minute)

	exercises, err := repo.GetExercises(context.Background(), []string{"ex-1"})
	if err != nil {
		t.Fatalf("get exercises: %v", err)
	}
	if len(exercises) != 1 || exercises[0].ID != "ex-1" {
		t.Fatalf("unexpected result: %+v", exercises)
	}
	if !mr.Exists("exercise:ex-1:content") {
		t.Fatalf("expected cache key to be set")
	}

	if _, err := repo.GetExercises(context.Background(), []string{"ex-1"}); err != nil {
		t.Fatalf("get exercises 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected redis cache hit, loader calls %d", loader.calls)
	}
}

type countingLoader struct {
	exercise domain.Exercise
	calls    int
}

func (l *countingLoader) LoadExercise(_ context.Context, exerciseID string) (domain.Exercise, error) {
	l.calls++
	if exerciseID != l.exercise.ID {
		return domain.Exercise{}, domain.ErrExerciseNotFound
	}
	return l.exercise, nil
}
