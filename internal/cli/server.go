package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/generator"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/infra/postgres"
	redisstore "timed-quiz-service/internal/infra/redis"
	"timed-quiz-service/internal/predictor"
	transport "timed-quiz-service/internal/transport/http"
)

const (
	defaultPort         = "8080"
	defaultGeneratorURL = "http://localhost:3001"
	defaultPredictorURL = "http://localhost:5001"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := cfg.NewLogger()
	slog.SetDefault(log)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	historyTTL := config.TTLDuration(cfg.Redis.HistoryTTL, 0)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		sessions app.SessionRepository
		slots    app.SlotProvider
	)
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, sessionTTL)
		slots = redisstore.NewHistorySlots(redisClient, historyTTL)
	} else {
		sessions = memory.NewSessionStore()
		slots = memory.NewSlotStore()
	}

	var statsRepo app.StatsRepository = memory.NewStatsRepository()
	if pool != nil {
		statsRepo = postgres.NewStatsRepository(pool)
	}

	genOpts := []generator.Option{generator.WithLogger(log)}
	if cfg.Quiz.QuestionCount > 0 {
		genOpts = append(genOpts, generator.WithQuestionCount(cfg.Quiz.QuestionCount))
	}
	gen := generator.NewClient(firstNonEmpty(cfg.Generator.URL, defaultGeneratorURL), genOpts...)

	var sessionOpts []app.SessionOption
	if cfg.Quiz.DurationSeconds > 0 {
		sessionOpts = append(sessionOpts, app.WithDuration(cfg.Quiz.DurationSeconds))
	}
	wsHandler := transport.NewWSHandler(sessions, slots, gen, log, sessionOpts...)

	predict := predictor.NewClient(firstNonEmpty(cfg.Predictor.URL, defaultPredictorURL), log)
	statsHandler := transport.NewStatsHandler(app.NewStatsService(statsRepo, predict, log), log)

	server := &http.Server{
		Addr:         ":" + firstNonEmpty(portFlag, cfg.Server.Port, defaultPort),
		Handler:      transport.NewRouter(wsHandler, statsHandler, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	log.Info("starting quiz service",
		"addr", server.Addr,
		"redis", redisClient != nil,
		"postgres", pool != nil,
		"duration_seconds", cfg.Quiz.DurationSeconds,
	)
	return serve(ctx, server, log)
}

// serve runs server until SIGINT, SIGTERM or ctx cancellation, then shuts it down.
func serve(ctx context.Context, server *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	case err := <-errCh:
		log.Error("failed to start server", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
