package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "reviewhub/internal/adapters/http_server"
	"reviewhub/internal/adapters/memcache"
	"reviewhub/internal/adapters/observability"
	redisad "reviewhub/internal/adapters/redis"
	"reviewhub/internal/app"
	"reviewhub/internal/domain"
	"reviewhub/internal/security"
	"reviewhub/internal/shared"
	mysqlrepo "reviewhub/internal/storage/mysql"
	"reviewhub/internal/tenancy"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	policy, err := tenancy.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("role policy invalid")
	}
	tokens, err := security.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("token issuer config invalid")
	}

	// deps
	repo := mysqlrepo.New(db)
	engine := tenancy.NewEngine(policy)
	cache := newCache(cfg)

	h := &server.Handlers{
		Auth:      app.NewAuthService(repo, repo, engine, tokens, cfg.RefreshTTL),
		Reviews:   app.NewReviewService(repo, repo, engine),
		Companies: app.NewCompanyService(repo, engine),
		Branches:  app.NewBranchService(repo, engine),
		Qr:        app.NewQrService(repo, repo, repo, engine, cache, cfg.CacheTTL),
		Tokens:    tokens,
		QrLimiter: server.NewKeyedLimiter(cfg.QrSubmitRPS, 3),
	}

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("db close failed")
	}
}

// newCache prefers Redis; without REDIS_ADDR each process keeps its own cache.
func newCache(cfg shared.Config) domain.Cache {
	if cfg.RedisAddr == "" {
		log.Info().Msg("REDIS_ADDR empty, using in-process cache")
		return memcache.New(cfg.CacheTTL)
	}
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis ping failed, lookups will fall through to MySQL")
	}
	return rc
}
