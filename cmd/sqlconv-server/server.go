package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/sqlconv/sqlconv/internal/config"
	"github.com/sqlconv/sqlconv/internal/domain/conversion"
	"github.com/sqlconv/sqlconv/internal/platform/apierror"
	"github.com/sqlconv/sqlconv/internal/platform/auth"
	"github.com/sqlconv/sqlconv/internal/platform/db"
	"github.com/sqlconv/sqlconv/internal/platform/middleware"
	"github.com/sqlconv/sqlconv/internal/platform/openapi"
	"github.com/sqlconv/sqlconv/internal/platform/telemetry"
)

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	conv, err := loadConverter(cfg.FunctionsFile)
	if err != nil {
		return fmt.Errorf("failed to load functions: %w", err)
	}
	logger.Info().Int("functions", conv.Functions().Len()).Str("file", cfg.FunctionsFile).Msg("function table loaded")

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.HasDatabase() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")

		applied, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		if applied > 0 {
			logger.Info().Int("count", applied).Msg("applied migrations")
		}
	}

	repo := newRecordRepository(cfg, pool)
	svc := conversion.NewService(conv, repo, logger)
	e := newServer(cfg, logger, svc, pool)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("history", svc.HistoryEnabled()).Msg("starting sqlconv server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newRecordRepository picks where conversion history lives. A nil repository
// turns history off.
func newRecordRepository(cfg *config.Config, pool *pgxpool.Pool) conversion.RecordRepository {
	switch {
	case !cfg.HistoryEnabled:
		return nil
	case pool != nil:
		return conversion.NewRecordRepoPG(pool)
	default:
		return conversion.NewRecordRepoMemory(cfg.HistoryMaxEntries)
	}
}

func newServer(cfg *config.Config, logger zerolog.Logger, svc *conversion.Service, pool *pgxpool.Pool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierror.Handler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	if cfg.MetricsEnabled {
		metrics := telemetry.NewProvider()
		if pool != nil {
			metrics.SetPoolStats(func() (int32, int32, int32) {
				s := pool.Stat()
				return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
			})
		}
		svc.SetObserver(metrics)
		e.Use(metrics.Middleware("/metrics", "/health"))
		e.GET("/metrics", metrics.Handler())
	}
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, middleware.RequestIDHeader},
	}))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/health"))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	e.GET("/health", db.HealthHandler(pool))

	v1 := e.Group("/api/v1")
	var historyMW []echo.MiddlewareFunc
	if cfg.AuthMode == config.AuthModeJWT {
		jwtCfg := auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.PublicSkipper,
		}
		if cfg.AuthSigningKey != "" {
			jwtCfg.SigningKey = []byte(cfg.AuthSigningKey)
		}
		v1.Use(auth.JWTMiddleware(jwtCfg))
		historyMW = append(historyMW, auth.RequireScope(auth.ScopeHistoryRead))
	}

	conversion.NewHandler(svc).RegisterRoutes(e, v1, historyMW...)

	fns := svc.Functions()
	names := make([]string, 0, len(fns))
	for _, fn := range fns {
		names = append(names, fn.Name)
	}
	openapi.NewGenerator(version, "http://localhost:"+cfg.Port, names, svc.HistoryEnabled()).
		RegisterRoutes(e.Group("/api"))
	return e
}
