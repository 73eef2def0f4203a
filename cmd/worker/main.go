package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lead-call-platform/internal/analyzer"
	"lead-call-platform/internal/calls"
	"lead-call-platform/internal/config"
	"lead-call-platform/internal/jobs"
	"lead-call-platform/internal/leads"
	"lead-call-platform/pkg/logger"
	"lead-call-platform/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	leadSvc := leads.NewService(leads.NewPostgresRepo(db))
	callSvc := calls.NewService(calls.NewPostgresRepo(db))

	var an *analyzer.Analyzer
	if a, err := analyzer.New(cfg.Analyzer); err == nil {
		an = a
	} else {
		log.Warn("transcript analyzer disabled", "err", err)
	}

	worker := jobs.NewWorker(cfg.Redis, leadSvc, callSvc, an, log)
	log.Info("worker starting", "env", cfg.App.Env)
	worker.Run(rootCtx)
	log.Info("worker stopped")
}
