package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizroom-service/internal/app"
	"quizroom-service/internal/config"
	"quizroom-service/internal/domain"
	"quizroom-service/internal/infra/memory"
	pgloader "quizroom-service/internal/infra/postgres"
	redisinfra "quizroom-service/internal/infra/redis"
	transport "quizroom-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.ExerciseLoader = memory.NewStaticExerciseLoader(sampleExercises())
	if pool != nil {
		loader = pgloader.NewExerciseLoader(pool)
	}

	exerciseTTL := config.TTLDuration(cfg.Exercise.TTL, 10*time.Minute)
	var exerciseRepo app.ExerciseRepository
	if redisClient != nil {
		exerciseRepo = redisinfra.NewExerciseRepository(redisClient, loader, exerciseTTL)
	} else {
		exerciseRepo = memory.NewExerciseRepository(loader, exerciseTTL)
	}

	var roomIndex app.RoomIndex
	if redisClient != nil {
		indexTTL := config.TTLDuration(cfg.Redis.TTL, 4*time.Hour)
		roomIndex = redisinfra.NewRoomIndex(redisClient, indexTTL)
	}

	rooms := app.NewRoomManager(timingsFromConfig(cfg.Game), roomIndex, logger)
	for _, fixed := range cfg.Rooms.Fixed {
		if _, err := rooms.CreateRoom(app.RoomConfig{
			Title:      fixed.Title,
			MaxPlayers: fixed.MaxPlayers,
			IsFixed:    true,
			Grade:      fixed.Grade,
			Code:       fixed.Code,
		}); err != nil {
			logger.Warn("fixed room not created", "code", fixed.Code, "error", err)
		}
	}

	service := app.NewService(rooms, exerciseRepo, cfg.Game, logger)
	handler := transport.NewHandler(service, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz room service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func timingsFromConfig(game config.Game) app.Timings {
	defaults := app.DefaultTimings()
	return app.Timings{
		StartDelay:       config.TTLDuration(game.StartDelay, defaults.StartDelay),
		RevealDelay:      config.TTLDuration(game.RevealDelay, defaults.RevealDelay),
		LeaderboardDelay: config.TTLDuration(game.LeaderboardDelay, defaults.LeaderboardDelay),
		TickPeriod:       config.TTLDuration(game.TickPeriod, defaults.TickPeriod),
	}
}

// sampleExercises provides minimal demo content for running without Postgres.
func sampleExercises() map[string]domain.Exercise {
	return map[string]domain.Exercise{
		"ex-1": {
			ID:    "ex-1",
			Type:  domain.ExerciseQuiz,
			Title: "Arithmetic warm-up",
			Content: []byte(`{"questions":[
				{"question":"What is 2 + 2?","options":["3","4","5"],"correctIndex":1},
				{"question":"What is 3 * 3?","options":["6","9","12"],"correctIndex":1}
			]}`),
		},
		"ex-2": {
			ID:    "ex-2",
			Type:  domain.ExerciseMatching,
			Title: "Capitals",
			Content: []byte(`{"pairs":[
				{"left":"France","right":"Paris"},
				{"left":"Italy","right":"Rome"},
				{"left":"Spain","right":"Madrid"}
			]}`),
		},
	}
}
