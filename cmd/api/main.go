package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutor-platform/internal/audit"
	"tutor-platform/internal/auth"
	"tutor-platform/internal/classes"
	"tutor-platform/internal/config"
	"tutor-platform/internal/dashboard"
	"tutor-platform/internal/httpapi"
	"tutor-platform/internal/profiles"
	"tutor-platform/internal/progress"
	"tutor-platform/internal/session"
	"tutor-platform/internal/topics"
	"tutor-platform/internal/voice"
	"tutor-platform/internal/webhooks"
	"tutor-platform/pkg/logger"
	"tutor-platform/pkg/utils"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const profileCacheTTL = 30 * time.Second

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.LogLevel)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPool{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisOptions{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Services
	profileSvc := profiles.NewService(profiles.NewPostgresRepo(db))
	profileSource := profiles.NewSource(profileSvc, profileCacheTTL)
	classSvc := classes.NewService(classes.NewPostgresRepo(db))
	topicSvc := topics.NewService(topics.NewPostgresRepo(db))
	progressSvc := progress.NewService(progress.NewPostgresRepo(db))
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	dashboardSvc := dashboard.NewService(progressSvc, profileSvc, classSvc)

	// Voice provider: one call handle per session, server messages routed
	// through the directory.
	calls := voice.NewDirectory(cfg.Session.LockTTL)
	voiceClient := voice.NewClient(cfg.Voice, calls, log)

	registry := session.NewRegistry(session.RegistryConfig{
		NewProvider: voiceClient.Provider,
		Progress:    progressSvc,
		Topics:      topicSvc,
		Guard:       session.NewRedisGuard(rdb, cfg.Session.LockTTL),
		Audit:       auditSvc,
		Options:     sessionOptions(cfg),
		Logger:      log,
	})

	authHook := &webhooks.AuthHandler{}
	if cfg.Webhook.AuthSecret != "" {
		authHook, err = webhooks.NewAuthHandler(cfg.Webhook.AuthSecret, profileSvc, auditSvc, profileSource)
		if err != nil {
			log.Error("auth webhook init failed", "err", err)
			os.Exit(1)
		}
	} else {
		log.Warn("auth webhook disabled", "reason", "WEBHOOK_AUTH_SECRET not set")
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(secure.New(secure.Config{
		IsDevelopment:        !cfg.IsProduction(),
		STSSeconds:           int64(cfg.App.HSTSMaxAge),
		STSIncludeSubdomains: true,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		ReferrerPolicy:       "strict-origin-when-cross-origin",
	}))

	registerRoutes(r, routeDeps{
		Health:    healthHandler(db, rdb),
		AuthHook:  authHook,
		VoiceHook: voice.WebhookHandler{Secret: cfg.Voice.WebhookSecret, Directory: calls},
		Handlers: httpapi.Handlers{
			Profiles:  profileSource,
			Classes:   classSvc,
			Topics:    topicSvc,
			Progress:  progressSvc,
			Dashboard: dashboardSvc,
			Sessions:  registry,
		},
		RequireAuth: auth.RequireAccessToken(authManager),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
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
	// Live calls are stopped and pending progress writes drained before the
	// stores close.
	if err := registry.Shutdown(shutdownCtx); err != nil {
		log.Error("session shutdown failed", "err", err)
	}
}

// sessionOptions maps config onto controller options. A zero connect timeout
// in config disables it; the controller reads zero as "default".
func sessionOptions(cfg config.Config) session.Options {
	connect := cfg.Session.ConnectTimeout
	if connect == 0 {
		connect = -1
	}
	return session.Options{
		AssistantID:     cfg.Voice.AssistantID,
		SpeakingTimeout: cfg.Session.SpeakingTimeout,
		ConnectTimeout:  connect,
		EndTimeout:      cfg.Session.EndTimeout,
	}
}

func healthHandler(db *sql.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := utils.HealthCheck(ctx, db, 2*time.Second); err != nil {
			logger.FromGin(c).Warn("health: postgres", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": "down"})
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.FromGin(c).Warn("health: redis", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
