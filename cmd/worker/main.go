package main

import (
	"context"
	"oj_workbench/internal/app/judge"
	"oj_workbench/internal/app/worker"
	"oj_workbench/internal/platform/config"
	"oj_workbench/internal/platform/logger"
	"oj_workbench/internal/platform/queue"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	config.Load()
	cfg := config.AppConfig

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := queue.ConnectRedis(ctx, log); err != nil {
		log.Fatal("redis unavailable", zap.Error(err))
	}
	defer queue.CloseRedis(log)

	var upstream judge.Judge = judge.NewMarker()
	if cfg.WorkerUpstream == config.JudgeBackendHTTP {
		upstream = judge.NewHTTP(cfg.JudgeURL, nil, cfg.JudgePollInterval)
	}

	w := worker.NewJudgeWorker(queue.RDB, upstream, worker.Config{
		QueueName:    cfg.JudgeQueueName,
		ReplyPrefix:  cfg.JudgeReplyPrefix,
		LockPrefix:   cfg.JudgeLockPrefix,
		ReplyTTL:     cfg.JudgeReplyTTL,
		LockTTL:      cfg.JudgeLockTTL,
		JudgeTimeout: cfg.JudgeTimeout,
	}, log.Named("worker"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Start(ctx)
	}()

	// Graceful shutdown on SIGINT or SIGTERM
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("shutdown signal received", zap.String("upstream", cfg.WorkerUpstream))
	cancel()

	wg.Wait()
	log.Info("worker exited cleanly")
}
