package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead-call-platform/internal/auth"
	"lead-call-platform/internal/calls"
	"lead-call-platform/internal/config"
	"lead-call-platform/internal/correlation"
	"lead-call-platform/internal/httpapi"
	"lead-call-platform/internal/jobs"
	"lead-call-platform/internal/leads"
	"lead-call-platform/internal/promptcache"
	"lead-call-platform/internal/telephony"
	"lead-call-platform/internal/voiceagent"
	"lead-call-platform/pkg/logger"
	"lead-call-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	if err := utils.RunMigrations(cfg.DB.MigrationsDir, cfg.PostgresURL()); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	leadSvc := leads.NewService(leads.NewPostgresRepo(db))
	callSvc := calls.NewService(calls.NewPostgresRepo(db))

	var dialer telephony.Dialer
	if d, err := telephony.NewTwilioDialer(cfg.Twilio, cfg.App.PublicBaseURL); err == nil {
		dialer = d
	} else {
		log.Warn("twilio dialer disabled", "err", err)
	}

	var agentClient *voiceagent.Client
	if cfg.Agent.APIKey != "" {
		agentClient = voiceagent.NewClient(cfg.Agent)
	} else {
		log.Warn("voice agent client disabled, no api key")
	}

	jobsClient := jobs.NewClient(cfg.Redis)
	defer jobsClient.Close()

	h := httpapi.Handlers{
		Cfg:         cfg,
		Auth:        authManager,
		Leads:       leadSvc,
		Calls:       callSvc,
		Correlation: correlation.NewEngine(leadSvc, callSvc),
		Agent:       agentClient,
		Dialer:      dialer,
		Prompts:     promptcache.NewRedis(rdb, promptcache.DefaultTTL),
		Jobs:        jobsClient,
		Redis:       rdb,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
