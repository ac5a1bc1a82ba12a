package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hacs/hacs/internal/config"
	"github.com/hacs/hacs/internal/domain/modeling"
	"github.com/hacs/hacs/internal/platform/auth"
	"github.com/hacs/hacs/internal/platform/db"
	"github.com/hacs/hacs/internal/platform/jsoncodec"
	"github.com/hacs/hacs/internal/platform/metrics"
	"github.com/hacs/hacs/internal/platform/middleware"
	engine "github.com/hacs/hacs/internal/platform/modeling"
	"github.com/hacs/hacs/internal/platform/openapi"
)

const version = "0.1.0"

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		logger.Warn().Msg("AUTH_SIGNING_KEY not set: unauthenticated requests run as an admin dev-user")
	}

	ctx := context.Background()
	e, cleanup, err := newServer(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	defer cleanup()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires the registry, its schema sources and the HTTP surface.
// cleanup releases the database pool when one was opened.
func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, promReg *prometheus.Registry) (*echo.Echo, func(), error) {
	cleanup := func() {}

	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(promReg)
	if err != nil {
		return nil, cleanup, fmt.Errorf("metrics: %w", err)
	}

	// Schema sources, in precedence order
	reg := engine.NewRegistry()
	sources := []modeling.SchemaSource{modeling.NewCatalogSource()}
	if cfg.SchemaDir != "" {
		sources = append(sources, modeling.NewDirSource(cfg.SchemaDir))
	}

	var pgSource *modeling.PGSource
	var pinger db.Pinger
	if cfg.SchemaDatabaseURL != "" {
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      cfg.SchemaDatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = pool.Close
		if err := db.EnsureSchemaTable(ctx, pool); err != nil {
			return nil, cleanup, err
		}
		logger.Info().Msg("connected to schema database")
		pgSource = modeling.NewPGSource(pool)
		pinger = pool
		sources = append(sources, pgSource)
	}

	if cfg.S3Enabled() {
		s3, err := modeling.NewS3Source(modeling.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, cleanup, err
		}
		sources = append(sources, s3)
	}

	modeling.LoadSchemas(ctx, reg, logger, sources...)
	logger.Info().Int("types", reg.Len()).Msg("registry ready")

	svc, err := modeling.NewService(reg, logger, cfg.PickCacheSize)
	if err != nil {
		return nil, cleanup, err
	}
	svc.SetMetrics(m)
	svc.SetMaxGraphDepth(cfg.GraphMaxDepth)
	if pgSource != nil {
		svc.SetSchemaStore(pgSource)
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsoncodec.Serializer{}
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig()))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"version": version,
			"types":   reg.Len(),
		})
	})
	if pinger != nil {
		e.GET("/health/db", db.HealthHandler(pinger))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	openapi.NewGenerator(reg, version, "").RegisterRoutes(e.Group("/api"))

	// Auth middleware
	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
	}
	authMW := auth.JWTMiddleware(jwtCfg)
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg)
	}

	rl := middleware.DefaultRateLimitConfig()
	rl.RequestsPerSecond = cfg.RateLimitRPS
	rl.BurstSize = cfg.RateLimitBurst
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rl), authMW)
	modeling.NewHandler(svc).RegisterRoutes(apiV1)

	return e, cleanup, nil
}
