package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cimillas/clinic-booking/internal/app"
	"github.com/cimillas/clinic-booking/internal/catalog"
	"github.com/cimillas/clinic-booking/internal/clock"
	"github.com/cimillas/clinic-booking/internal/config"
	"github.com/cimillas/clinic-booking/internal/events"
	"github.com/cimillas/clinic-booking/internal/storage/memory"
	"github.com/cimillas/clinic-booking/internal/storage/postgres"
	transporthttp "github.com/cimillas/clinic-booking/internal/transport/http"
	"github.com/cimillas/clinic-booking/migrations"
)

// reservationStore is everything the services need from a storage
// backend; both the postgres and the in-memory implementation satisfy
// it.
type reservationStore interface {
	app.HoldStore
	app.BookingStore
	app.RescheduleStore
	app.AvailabilityStore
	app.AppointmentReader
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}

	logger := newLogger(cfg)
	clk := clock.NewSystem()

	startupCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var store reservationStore
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to db")
		}
		defer pool.Close()

		if err := pool.Ping(startupCtx); err != nil {
			logger.Fatal().Err(err).Msg("db ping")
		}
		if err := migrations.Apply(startupCtx, pool); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		store = postgres.NewReservationStore(pool, clk)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory store; reservations will not survive a restart")
		store = memory.NewReservationStore(clk)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(startupCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis not available, events disabled")
		} else {
			publisher = events.NewRedisPublisher(client, cfg.EventsChannel, logger)
		}
	}

	cat := catalog.NewDefault()
	holdSvc := app.NewHoldService(store, clk, publisher, app.WithHoldTTL(cfg.HoldTTL))
	bookingSvc := app.NewBookingService(store, cat, clk, publisher)
	rescheduleSvc := app.NewRescheduleService(store, cat, clk, publisher)
	availabilitySvc := app.NewAvailabilityService(store, cat, clk)
	appointmentSvc := app.NewAppointmentService(store)

	handler := transporthttp.NewRouter(transporthttp.RouterDeps{
		Availability: availabilitySvc,
		Holds:        holdSvc,
		Booking:      bookingSvc,
		Reschedule:   rescheduleSvc,
		Appointments: appointmentSvc,
	}, logger, cfg.CORSOrigins)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-stopCtx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server stopped")
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(level)
}
