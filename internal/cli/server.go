package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-player/internal/app"
	"quiz-player/internal/config"
	"quiz-player/internal/infra/backend"
	"quiz-player/internal/infra/memory"
	pgstore "quiz-player/internal/infra/postgres"
	redisstore "quiz-player/internal/infra/redis"
	"quiz-player/internal/logger"
	"quiz-player/internal/metrics"
	transport "quiz-player/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string, envPort string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", envPort, "port to listen on")
	return cmd
}

// deps holds the infrastructure picked from config.
type deps struct {
	quizzes  app.QuizRepository
	attempts app.AttemptRepository
	archive  app.ResultArchive
	scorer   *backend.Client
	// attemptTTL is how long an idle attempt is kept before eviction.
	attemptTTL time.Duration
	close      func()
}

func buildDeps(ctx context.Context, cfg config.Config, log *zap.Logger) (deps, error) {
	if cfg.Backend.BaseURL == "" {
		return deps{}, errors.New("backend base_url not configured")
	}
	client := backend.NewClient(
		cfg.Backend.BaseURL,
		cfg.Backend.Token,
		config.TTLDuration(cfg.Backend.Timeout, 15*time.Second),
		log.Named("backend"),
	)
	d := deps{scorer: client, close: func() {}}

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
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return deps{}, err
		}
	}
	d.close = func() {
		if pool != nil {
			pool.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}

	var loader memory.QuizLoader = client
	if pool != nil {
		loader = pgstore.NewMirrorLoader(client, pgstore.NewQuizLoader(pool), log.Named("mirror"))
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	attemptTTL := config.TTLDuration(cfg.Attempt.TTL, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))
	d.attemptTTL = attemptTTL
	switch {
	case redisClient != nil:
		d.quizzes = redisstore.NewQuizRepository(redisClient, loader, quizTTL, log.Named("quiz-cache"))
		d.attempts = redisstore.NewSessionStore(redisClient, attemptTTL, log.Named("attempts"))
	default:
		d.quizzes = memory.NewQuizRepository(loader, quizTTL)
		d.attempts = memory.NewSessionStore()
	}

	switch {
	case pool != nil:
		d.archive = pgstore.NewResultArchive(pool)
	case redisClient != nil:
		d.archive = redisstore.NewResultArchive(redisClient)
	default:
		d.archive = memory.NewResultArchive()
	}
	return d, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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

	d, err := buildDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.close()

	recorder := metrics.NewRecorder()
	service := app.NewQuizService(d.attempts, d.quizzes, d.scorer, d.archive, recorder, log.Named("quiz"))
	wsHandler := transport.NewWSHandler(service, log.Named("ws"))

	evictCtx, stopEviction := context.WithCancel(ctx)
	defer stopEviction()
	if d.attemptTTL > 0 {
		go service.RunEviction(evictCtx, d.attemptTTL, evictionInterval(d.attemptTTL))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/metrics", recorder.Handler())

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz player", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func evictionInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}
