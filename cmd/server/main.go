// Package main is the entry point for the recordhub API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"recordhub/internal/app"
	"recordhub/internal/config"
	"recordhub/internal/domain/auth"
	"recordhub/internal/domain/search"
	"recordhub/internal/domain/student"
	"recordhub/internal/domain/upload"
	v1 "recordhub/internal/infrastructure/http/v1"
	"recordhub/internal/infrastructure/http/v1/handlers"
	"recordhub/internal/infrastructure/http/v1/middleware"
	"recordhub/internal/infrastructure/metrics"
	"recordhub/internal/infrastructure/objectstore"
	"recordhub/internal/infrastructure/storage/postgres"
	"recordhub/internal/infrastructure/storage/postgres/auth_repo"
	"recordhub/internal/infrastructure/storage/postgres/student_repo"
	"recordhub/pkg/logger"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load(os.Getenv("RECORDHUB_CONFIG"))
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg, "server")
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting recordhub server", "env", cfg.App.Env, "search_backend", cfg.Search.Backend)

	// --- Database ---
	db, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()
	if db.Pool == nil {
		log.Warn("no database configured: running search-only")
	}

	// --- Search ---
	schema, err := app.Schema(cfg)
	if err != nil {
		log.Fatalw("invalid search schema", "error", err)
	}
	translator := app.Translator(cfg, schema)
	backend, err := app.NewSearchBackend(ctx, cfg, schema, db)
	if err != nil {
		log.Fatalw("failed to create search backend", "error", err)
	}
	searchService := search.NewService(translator, backend, search.Config{
		NameFields:    cfg.Search.NameFields,
		SuggestFields: cfg.Search.SuggestFields,
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxLimit:      cfg.Search.MaxLimit,
		OrderBy:       cfg.Search.OrderBy,
	}, metrics.SearchObserver{})

	// --- JWT ---
	jwtConfig := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
	jwtConfig.AccessTokenTTL = cfg.Auth.AccessTokenTTL
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Object storage ---
	store, err := objectstore.NewClient(objectstore.Config{
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Bucket:          cfg.Storage.Bucket,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		log.Fatalw("failed to create object storage client", "error", err)
	}
	if store.Enabled() {
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatalw("failed to prepare bucket", "bucket", cfg.Storage.Bucket, "error", err)
		}
	} else {
		log.Warn("object storage not configured: uploads disabled")
	}
	uploadService := upload.NewService(store, upload.Config{
		Prefix:  cfg.Storage.Prefix,
		MaxSize: cfg.Storage.MaxUploadSize,
		URLTTL:  cfg.Storage.URLTTL,
	})

	checks := map[string]handlers.Pinger{"search": backend}
	if store.Enabled() {
		checks["objectstore"] = store
	}

	routerCfg := v1.RouterConfig{
		Logger:         log,
		JWTValidator:   jwtService,
		SearchService:  searchService,
		UploadService:  uploadService,
		AuthLimiter:    middleware.NewRateLimiter(cfg.HTTP.AuthRateLimit, cfg.HTTP.AuthRateBurst, 10*time.Minute),
		HealthChecks:   checks,
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		Debug:          cfg.IsDevelopment(),
		Cookies: handlers.CookieConfig{
			Secure: cfg.Auth.CookieSecure,
			Domain: cfg.Auth.CookieDomain,
		},
	}

	// --- Students and auth (database required) ---
	if db.TxM != nil {
		authConfig := auth.DefaultServiceConfig()
		authConfig.RefreshTokenExpiry = cfg.Auth.RefreshTokenTTL
		authConfig.RevokedRetention = cfg.Auth.RevokedRetention

		routerCfg.AuthService = auth.NewService(
			auth_repo.NewAccountRepo(db.TxM),
			auth_repo.NewTokenRepo(db.TxM),
			db.TxM,
			jwtService,
			authConfig,
		)
		routerCfg.StudentService = student.NewService(
			student_repo.New(db.TxM),
			db.TxM,
			translator,
			cfg.Search.ListFields,
		)
		routerCfg.IdempotencyStore = postgres.NewIdempotencyStore(db.TxM, idempotencyTTL)
		checks["database"] = db.TxM
	}

	var handler http.Handler = v1.NewRouter(routerCfg)
	if cfg.HTTP.Gzip {
		handler = gzhttp.GzipHandler(handler)
	}

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
