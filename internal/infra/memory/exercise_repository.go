package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizroom-service/internal/domain"
)

// ExerciseLoader resolves a single exercise by ID from wherever the content
// lives (postgres in production, a fixture map in dev mode).
type ExerciseLoader interface {
	LoadExercise(ctx context.Context, exerciseID string) (domain.Exercise, error)
}

// ExerciseRepository wraps a loader with an expiring cache so that building
// questions for several rooms from the same exercises only loads each once.
// Concurrent misses for one ID collapse into a single load.
type ExerciseRepository struct {
	loader ExerciseLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedExercise
}

type cachedExercise struct {
	exercise  domain.Exercise
	expiresAt time.Time
}

func NewExerciseRepository(loader ExerciseLoader, ttl time.Duration) *ExerciseRepository {
	return &ExerciseRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedExercise),
	}
}

func (r *ExerciseRepository) GetExercises(ctx context.Context, ids []string) ([]domain.Exercise, error) {
	out := make([]domain.Exercise, 0, len(ids))
	for _, id := range ids {
		exercise, err := r.getExercise(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, exercise)
	}
	return out, nil
}

func (r *ExerciseRepository) getExercise(ctx context.Context, id string) (domain.Exercise, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.exercise, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.exercise, nil
		}
		r.mu.RUnlock()

		exercise, err := r.loader.LoadExercise(ctx, id)
		if err != nil {
			return domain.Exercise{}, err
		}

		r.mu.Lock()
		r.cache[id] = cachedExercise{
			exercise:  exercise,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return exercise, nil
	})
	if err != nil {
		return domain.Exercise{}, err
	}
	return result.(domain.Exercise), nil
}

func (r *ExerciseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// stagger expiry so a burst of rooms created together does not
	// refresh the whole cache at once
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticExerciseLoader serves exercises from a fixed map. The server falls
// back to it when no postgres URL is configured.
type StaticExerciseLoader struct {
	exercises map[string]domain.Exercise
}

func NewStaticExerciseLoader(exercises map[string]domain.Exercise) *StaticExerciseLoader {
	return &StaticExerciseLoader{exercises: exercises}
}

func (l *StaticExerciseLoader) LoadExercise(_ context.Context, exerciseID string) (domain.Exercise, error) {
	if exercise, ok := l.exercises[exerciseID]; ok {
		return exercise, nil
	}
	return domain.Exercise{}, domain.ErrExerciseNotFound
}
