package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizroom-service/internal/domain"
)

// ExerciseLoader fetches exercise content from a backing store.
type ExerciseLoader interface {
	LoadExercise(ctx context.Context, exerciseID string) (domain.Exercise, error)
}

// ExerciseRepository caches exercise JSON in Redis and falls back to a loader
// on cache miss. Entries are stored as: SET exercise:{id}:content {json}
type ExerciseRepository struct {
	client *redis.Client
	loader ExerciseLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewExerciseRepository(client *redis.Client, loader ExerciseLoader, ttl time.Duration) *ExerciseRepository {
	return &ExerciseRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
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
	key := r.contentKey(id)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		var exercise domain.Exercise
		if json.Unmarshal(raw, &exercise) == nil {
			return exercise, nil
		}
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			var exercise domain.Exercise
			if json.Unmarshal(raw, &exercise) == nil {
				return exercise, nil
			}
		}

		exercise, err := r.loader.LoadExercise(ctx, id)
		if err != nil {
			return domain.Exercise{}, err
		}

		if raw, err := json.Marshal(exercise); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return exercise, nil
	})
	if err != nil {
		return domain.Exercise{}, err
	}
	return result.(domain.Exercise), nil
}

func (r *ExerciseRepository) contentKey(id string) string {
	return "exercise:" + id + ":content"
}

func (r *ExerciseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
