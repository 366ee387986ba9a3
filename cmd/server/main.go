package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/session-auth/internal/config"
	"github.com/iliyamo/session-auth/internal/database"
	"github.com/iliyamo/session-auth/internal/handler"
	"github.com/iliyamo/session-auth/internal/middleware"
	"github.com/iliyamo/session-auth/internal/observability"
	"github.com/iliyamo/session-auth/internal/queue"
	"github.com/iliyamo/session-auth/internal/repository"
	"github.com/iliyamo/session-auth/internal/router"
	"github.com/iliyamo/session-auth/internal/service"
	"github.com/iliyamo/session-auth/internal/session"
	"github.com/iliyamo/session-auth/internal/token"
)

func main() {
	cleanup := flag.Bool("cleanup-expired", false, "delete expired refresh tokens and exit")
	flag.Parse()

	_ = godotenv.Load() // .env is optional
	cfg := config.Load()
	logger := observability.SetupLogger(cfg.Env, os.Stdout)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		log.Warn().Err(err).Msg("sentry init failed")
	}
	defer observability.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database open")
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("database migrate")
		}
	}

	tokens := repository.NewTokenRepo(db)
	if *cleanup {
		n, err := tokens.DeleteExpired(ctx, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("cleanup expired refresh tokens")
		}
		log.Info().Int64("deleted", n).Msg("expired refresh tokens removed")
		return
	}

	codec, err := token.NewCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("token codec")
	}

	var notifiers []session.Notifier
	if cfg.RabbitMQURL != "" {
		notifiers = append(notifiers, service.NewPublisher(cfg.RabbitMQURL))
		go func() {
			if err := queue.StartSecurityConsumer(ctx, cfg.RabbitMQURL, cfg.SecurityLogPath); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("security consumer stopped")
			}
		}()
	}
	if cfg.SentryDSN != "" {
		notifiers = append(notifiers, observability.NewSentryNotifier())
	}

	manager := session.NewManager(repository.NewUserRepo(db), tokens, codec).
		WithBcryptCost(cfg.BcryptCost).
		WithNotifiers(notifiers...).
		WithLogger(logger.With().Str("component", "session").Logger())

	// Redis is optional; without it the rate limiter is a pass-through.
	var limiter *middleware.RateLimiter
	rlCfg := config.LoadRateLimitConfig()
	if rlCfg.Enabled {
		rdb, err := config.NewRedisClient(ctx, config.RedisOptions())
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, rate limiting disabled")
		} else {
			defer func(c *redis.Client) { _ = c.Close() }(rdb)
			limiter = middleware.NewRateLimiter(rlCfg, rdb)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(cfg.IsProduction())
	e.Use(echomw.Recover())
	e.Use(observability.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(manager, codec.RefreshTTL(), cfg.IsProduction()), codec, limiter)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
