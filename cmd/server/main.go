package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-booking-service/internal/cache"
	"github.com/iliyamo/seat-booking-service/internal/config"
	"github.com/iliyamo/seat-booking-service/internal/database"
	"github.com/iliyamo/seat-booking-service/internal/handler"
	"github.com/iliyamo/seat-booking-service/internal/logger"
	"github.com/iliyamo/seat-booking-service/internal/middleware"
	"github.com/iliyamo/seat-booking-service/internal/queue"
	"github.com/iliyamo/seat-booking-service/internal/repository"
	"github.com/iliyamo/seat-booking-service/internal/router"
	"github.com/iliyamo/seat-booking-service/internal/service"
	"github.com/iliyamo/seat-booking-service/internal/utils"
	"github.com/iliyamo/seat-booking-service/internal/worker"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zlog.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		zlog.Fatal("migrations failed", zap.Error(err))
	}

	// Redis is optional; without it the cache and the rate limiter are off.
	rdb := config.NewRedisClient()
	if rdb == nil {
		zlog.Warn("redis unavailable, seat cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	var seatCache service.AvailabilityCache
	if sc := cache.NewSeatCache(rdb, config.LoadSeatCacheConfig(), zlog); sc != nil {
		seatCache = sc
	}

	var events service.EventPublisher
	if cfg.RabbitURL != "" {
		events = queue.NewPublisher(cfg.RabbitURL, zlog)
	} else {
		zlog.Warn("RABBITMQ_URL not set, booking events disabled")
	}

	seatRepo := repository.NewSeatRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	resourceRepo := repository.NewResourceRepo(db)
	userRepo := repository.NewUserRepo(db)

	seats := service.NewSeatLockService(seatRepo, seatCache, cfg.Lock.Lease, zlog)
	bookings := service.NewBookingService(service.BookingServiceDeps{
		DB:                   db,
		Seats:                seats,
		Bookings:             bookingRepo,
		Resources:            resourceRepo,
		Users:                userRepo,
		Events:               events,
		Logger:               zlog,
		ReleaseSeatsOnCancel: cfg.Booking.ReleaseSeatsOnCancel,
		MaxSeatsPerBooking:   cfg.Booking.MaxSeatsPerRequest,
	})

	if cfg.SeedMissingSeats {
		prov := service.NewProvisioner(db, resourceRepo, seatRepo, zlog)
		if n, err := prov.EnsureSeats(ctx); err != nil {
			zlog.Error("seat grid generation failed", zap.Error(err))
		} else if n > 0 {
			zlog.Info("seat grids generated", zap.Int("resources", n))
		}
	}

	var wg sync.WaitGroup
	sweeper := worker.NewExpirySweeper(seats, zlog, cfg.Lock.SweepInterval, cfg.Lock.Lease)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()
	if cfg.RabbitURL != "" {
		audit := queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogDir, zlog)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := audit.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zlog.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(zlog))

	seatHandler := handler.NewSeatHandler(seats, zlog)
	bookingHandler := handler.NewBookingHandler(bookings, zlog)

	var identity []echo.MiddlewareFunc
	switch cfg.AuthMode {
	case "header":
		identity = []echo.MiddlewareFunc{middleware.TrustedHeader()}
	default:
		identity = []echo.MiddlewareFunc{
			middleware.JWTAuth(cfg.JWTSecret),
			middleware.RequireRole(utils.RoleCustomer, utils.RoleAdmin),
		}
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zlog)

	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, seatHandler)
	router.RegisterCustomer(e, seatHandler, bookingHandler, append(identity, limiter)...)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		zlog.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("auth_mode", cfg.AuthMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("forced shutdown", zap.Error(err))
	}
	wg.Wait()
	zlog.Info("server exited")
}
