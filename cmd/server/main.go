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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/planetarium-reservation/internal/cache"
	"github.com/iliyamo/planetarium-reservation/internal/config"
	"github.com/iliyamo/planetarium-reservation/internal/database"
	"github.com/iliyamo/planetarium-reservation/internal/handler"
	"github.com/iliyamo/planetarium-reservation/internal/logger"
	"github.com/iliyamo/planetarium-reservation/internal/middleware"
	"github.com/iliyamo/planetarium-reservation/internal/queue"
	"github.com/iliyamo/planetarium-reservation/internal/repository"
	"github.com/iliyamo/planetarium-reservation/internal/router"
	"github.com/iliyamo/planetarium-reservation/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema applied")
	}

	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable, caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	dispatcher := cache.NewDispatcher(cache.DefaultPatterns(), evictor(rdb, cacheCfg.ScanCount), log.Named("cache"), cacheCfg.EvictTimeout)

	themes := repository.NewShowThemeRepo(db)
	domes := repository.NewDomeRepo(db)
	shows := repository.NewAstronomyShowRepo(db)
	sessions := repository.NewShowSessionRepo(db)
	reservations := repository.NewReservationRepo(db)

	opts := []service.ReservationOption{
		service.WithMaxTickets(cfg.MaxTickets),
		service.WithLogger(log.Named("reservation")),
	}
	qcfg := config.LoadQueueConfig()
	if qcfg.Enabled {
		pub := queue.NewPublisher(qcfg.URL, qcfg.Queue, log.Named("publisher"))
		defer pub.Close()
		opts = append(opts, service.WithEvents(pub))
		if qcfg.StartConsumer {
			consumer := queue.NewConsumer(qcfg.URL, qcfg.Queue, qcfg.ConsumerPrefetch, log.Named("consumer"))
			go func() { _ = consumer.Run(ctx) }()
		}
	}

	catalogue := service.NewCatalogueService(themes, domes, shows, sessions, dispatcher)
	booking := service.NewReservationService(sessions, reservations, dispatcher, opts...)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.RequestLogger(log.Named("http")))
	router.RegisterRoutes(e, db)
	router.RegisterAPI(e, router.Handlers{
		Themes:       handler.NewShowThemeHandler(catalogue, log),
		Domes:        handler.NewDomeHandler(catalogue, log),
		Shows:        handler.NewAstronomyShowHandler(catalogue, log),
		Sessions:     handler.NewShowSessionHandler(catalogue, log),
		Reservations: handler.NewReservationHandler(booking, log),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     cacheCfg,
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
		Log:       log,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// evictor returns nil when Redis is down so invalidation becomes a no-op.
func evictor(rdb *redis.Client, scanCount int64) cache.Evictor {
	if rdb == nil {
		return nil
	}
	return cache.NewRedisEvictor(rdb, scanCount)
}
