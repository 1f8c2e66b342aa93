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

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"loyalty-platform/internal/audit"
	"loyalty-platform/internal/auth"
	"loyalty-platform/internal/config"
	"loyalty-platform/internal/directory"
	"loyalty-platform/internal/gate"
	"loyalty-platform/internal/keyset"
	"loyalty-platform/internal/ratelimit"
	"loyalty-platform/pkg/logger"
	"loyalty-platform/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional .env for local runs; real deployments inject env directly.
	_ = godotenv.Load()

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

	keys, err := keyset.New(keyset.Config{
		URL:          cfg.IDP.JWKSURL,
		TTL:          cfg.IDP.KeyCacheTTL,
		FetchTimeout: cfg.IDP.FetchTimeout,
	})
	if err != nil {
		log.Error("key cache init failed", "err", err)
		os.Exit(1)
	}

	verifier, err := auth.NewVerifier(keys, auth.VerifierConfig{
		Issuer:   cfg.IDP.Issuer,
		Audience: cfg.IDP.Audience,
	})
	if err != nil {
		log.Error("verifier init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter()
	if cfg.RateLimit.Backend == "redis" {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		limiter, err = ratelimit.NewRedisLimiter(rdb, "rl")
		if err != nil {
			log.Error("rate limiter init failed", "err", err)
			os.Exit(1)
		}
	}

	auditRepo, err := audit.NewPostgresRepo(db)
	if err != nil {
		log.Error("audit repo init failed", "err", err)
		os.Exit(1)
	}
	auditSvc := audit.NewService(auditRepo, log)

	shops, err := directory.NewPostgresDirectory(db)
	if err != nil {
		log.Error("shop directory init failed", "err", err)
		os.Exit(1)
	}

	requestGate, err := gate.New(gate.Config{
		Verifier:      verifier,
		Limiter:       limiter,
		Audit:         auditSvc,
		Directory:     shops,
		Routes:        routeTable(),
		GeneralTier:   ratelimit.Config{Limit: cfg.RateLimit.GeneralLimit, Window: cfg.RateLimit.GeneralWindow},
		SensitiveTier: ratelimit.Config{Limit: cfg.RateLimit.SensitiveLimit, Window: cfg.RateLimit.SensitiveWindow},
		Logger:        log,
	})
	if err != nil {
		log.Error("gate init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(requestGate.Middleware())

	registerRoutes(r, auditSvc)

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
