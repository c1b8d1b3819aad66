package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/middleware"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/router"
	"github.com/iliyamo/travel-booking/internal/service"
	"github.com/iliyamo/travel-booking/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	// Repositories and services
	users := repository.NewUserRepo(db)
	resources := repository.NewResourceRepo(db)
	bookings := repository.NewBookingRepo(db)
	outbox := repository.NewOutboxRepo(db)
	tokens := repository.NewTokenRepo(db)

	creds, err := service.NewCredentials(users, cfg.BcryptCost)
	if err != nil {
		logger.Error("failed to init credentials", "error", err)
		os.Exit(1)
	}
	engine := service.NewBookingService(repository.NewTxManager(db), users, resources, bookings, outbox, cfg.Booking)

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))

	router.Setup(e, cfg, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, creds, tokens),
		Resource: handler.NewResourceHandler(resources),
		Booking:  handler.NewBookingHandler(engine),
		Admin:    handler.NewAdminHandler(resources),
		DB:       db,
		Redis:    rdb,
	})

	// Outbox relay
	if pub, closePub := newPublisher(cfg.Events); pub != nil {
		defer closePub()
		relay := worker.NewRelay(outbox, pub, cfg.Events.BatchSize, cfg.Events.PollInterval, cfg.Events.MaxAttempts)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error("outbox relay stopped with error", "error", err)
			}
		}()
	} else {
		logger.Info("events broker disabled; outbox rows stay pending")
	}

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "driver", cfg.DB.Driver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// newPublisher returns the configured broker adapter, or nil when events
// are disabled.
func newPublisher(cfg config.Events) (worker.Publisher, func()) {
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		p := queue.NewRabbitPublisher(cfg.RabbitURL)
		return p, func() { _ = p.Close() }
	case config.BrokerKafka:
		p := queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, func() { _ = p.Close() }
	}
	return nil, func() {}
}
