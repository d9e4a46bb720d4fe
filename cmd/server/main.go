package main

import (
	"context"
	"errors"
	"net/http"
	"oj_workbench/internal/api"
	"oj_workbench/internal/app/judge"
	"oj_workbench/internal/app/service"
	"oj_workbench/internal/domain/repository"
	"oj_workbench/internal/platform/config"
	"oj_workbench/internal/platform/database"
	"oj_workbench/internal/platform/logger"
	"oj_workbench/internal/platform/queue"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if !cfg.EnvFileLoaded {
		log.Info("no .env file found, relying on environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx := context.Background()

	// 2. Redis, when the judge queue or the draft store needs it
	if cfg.JudgeBackend == config.JudgeBackendQueue || cfg.DraftBackend == config.DraftBackendRedis {
		if err := queue.ConnectRedis(ctx, log); err != nil {
			log.Fatal("redis unavailable", zap.Error(err))
		}
		defer queue.CloseRedis(log)
	}

	// 3. Draft repository
	drafts, err := newDraftRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal("draft store unavailable", zap.Error(err))
	}
	if cfg.DraftBackend == config.DraftBackendPostgres {
		defer database.Close(log)
	}

	// 4. Judge and worker pool
	j := newJudge(cfg)
	pool, err := ants.NewPool(cfg.JudgePoolSize, ants.WithNonblocking(true))
	if err != nil {
		log.Fatal("failed to create judge pool", zap.Error(err))
	}
	defer pool.Release()

	// 5. Services
	draftService := service.NewDraftService(drafts, log.Named("drafts"))
	submissionService := service.NewSubmissionService(j, pool, cfg.JudgeTimeout, log.Named("submissions"))
	sessionManager := service.NewSessionManager(submissionService, draftService, service.SessionConfig{
		HistoryLimit:     cfg.HistoryLimit,
		AutosaveInterval: cfg.AutosaveInterval,
		IdleTimeout:      cfg.SessionIdleTimeout,
	}, log.Named("sessions"))
	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	sessionManager.StartReaper(reaperCtx)

	// 6. Router & HTTP Server
	router := api.NewRouter(submissionService, draftService, sessionManager)
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.JudgeTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("server starting",
			zap.String("port", cfg.APIPort),
			zap.String("judge_backend", cfg.JudgeBackend),
			zap.String("draft_backend", cfg.DraftBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not listen", zap.String("port", cfg.APIPort), zap.Error(err))
		}
	}()

	<-stop

	log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	stopReaper()
	// Final draft flush for every open editor.
	sessionManager.CloseAll(shutdownCtx)
	log.Info("server stopped gracefully")
}

func newJudge(cfg *config.Config) judge.Judge {
	switch cfg.JudgeBackend {
	case config.JudgeBackendHTTP:
		return judge.NewHTTP(cfg.JudgeURL, nil, cfg.JudgePollInterval)
	case config.JudgeBackendQueue:
		return judge.NewQueue(queue.RDB, cfg.JudgeQueueName, cfg.JudgeReplyPrefix)
	default:
		return judge.NewMarker()
	}
}

func newDraftRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.DraftRepository, error) {
	switch cfg.DraftBackend {
	case config.DraftBackendRedis:
		return repository.NewRedisDraftRepository(queue.RDB, cfg.DraftKeyPrefix, cfg.DraftTTL), nil
	case config.DraftBackendPostgres:
		if err := database.Connect(ctx, log); err != nil {
			return nil, err
		}
		if err := repository.EnsureDraftSchema(ctx, database.DB); err != nil {
			return nil, err
		}
		return repository.NewPgDraftRepository(database.DB), nil
	default:
		return repository.NewMemoryDraftRepository(cfg.DraftCacheSizeMB), nil
	}
}
