package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/databayt/mkan-sub001/internal/booking"
	"github.com/databayt/mkan-sub001/internal/config"
	"github.com/databayt/mkan-sub001/internal/database"
	"github.com/databayt/mkan-sub001/internal/events"
	"github.com/databayt/mkan-sub001/internal/handlers"
	"github.com/databayt/mkan-sub001/internal/logger"
	"github.com/databayt/mkan-sub001/internal/middleware"
	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/databayt/mkan-sub001/internal/payment"
	"github.com/databayt/mkan-sub001/internal/router"
	"github.com/databayt/mkan-sub001/internal/service"
	"github.com/databayt/mkan-sub001/internal/websocket"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("API server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := database.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	zlog.Info("Connected to database")

	// Create Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return err
	}
	defer temporalClient.Close()
	zlog.Info("Connected to Temporal", zap.String("host", cfg.Temporal.Host))

	publisher := newPublisher(cfg, zlog)
	defer publisher.Close()

	payments, err := newPaymentRegistry(cfg, zlog)
	if err != nil {
		return err
	}

	hub := websocket.NewHub(zlog, cfg.CORS.AllowedOrigins...)
	go hub.Run(ctx)

	// Initialize services
	bookingService := service.NewBookingService(repo, payments,
		service.WithScheduler(service.NewTemporalScheduler(temporalClient, cfg.Temporal.TaskQueue, cfg.Booking.PaymentWindow)),
		service.WithPublisher(publisher),
		service.WithNotifier(hub),
		service.WithLogger(zlog),
		service.WithCurrency(cfg.Stripe.Currency),
	)

	sessions := booking.NewManager(bookingService,
		booking.WithCompensator(bookingService),
		booking.WithLogger(zlog),
		booking.WithStepTimeout(cfg.Booking.StepTimeout),
	)
	go sweepSessions(ctx, sessions, cfg.Booking, zlog)

	limiter, closeLimiter := newLimiter(ctx, cfg, zlog)
	defer closeLimiter()

	// Initialize handlers
	h := handlers.NewHandler(bookingService, sessions,
		handlers.WithSeatWatchers(hub),
		handlers.WithPinger(repo),
		handlers.WithLogger(zlog),
	)

	// Create router
	r := router.SetupRouter(h,
		middleware.RequestID,
		mux.MiddlewareFunc(middleware.Logger(zlog)),
		mux.MiddlewareFunc(middleware.CORS(cfg.CORS.AllowedOrigins...)),
		mux.MiddlewareFunc(middleware.RateLimit(limiter, zlog)),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("API server starting", zap.String("addr", srv.Addr), zap.String("environment", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	zlog.Info("Server stopped")
	return nil
}

func newPublisher(cfg *config.Config, zlog *zap.Logger) events.Publisher {
	if !cfg.Kafka.Enabled() {
		zlog.Info("Kafka not configured, booking events are dropped")
		return events.NopPublisher{}
	}
	publisher, err := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		ClientID: cfg.Kafka.ClientID,
	}, zlog)
	if err != nil {
		zlog.Warn("Failed to create Kafka publisher, booking events are dropped", zap.Error(err))
		return events.NopPublisher{}
	}
	return publisher
}

// newPaymentRegistry wires one processor per payment method. Card payments
// use Stripe when a secret key is configured and the simulator otherwise.
func newPaymentRegistry(cfg *config.Config, zlog *zap.Logger) (*payment.Registry, error) {
	registry := payment.NewRegistry()
	registry.Register(models.PaymentMethodCashOnArrival, payment.NewCashProcessor())

	mobile := payment.DefaultMockConfig()
	mobile.SuccessRate = cfg.Booking.MobileMoneySuccess
	registry.Register(models.PaymentMethodMobileMoney, payment.NewMockProcessor("mobile_money", mobile, nil))

	if cfg.Stripe.SecretKey == "" {
		zlog.Warn("Stripe not configured, card payments are simulated")
		registry.Register(models.PaymentMethodCard, payment.NewMockProcessor("card", payment.DefaultMockConfig(), nil))
		return registry, nil
	}

	stripe, err := payment.NewStripeProcessor(&payment.StripeConfig{
		SecretKey:       cfg.Stripe.SecretKey,
		PaymentMethodID: cfg.Stripe.PaymentMethodID,
	})
	if err != nil {
		return nil, err
	}
	registry.Register(models.PaymentMethodCard, stripe)
	return registry, nil
}

// newLimiter returns the Redis limiter when Redis is enabled and reachable,
// falling back to an in-process one
func newLimiter(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (middleware.Limiter, func()) {
	rlCfg := middleware.DefaultRateLimitConfig()
	rlCfg.RequestsPerSecond = cfg.Booking.RateLimitRPS
	rlCfg.BurstSize = cfg.Booking.RateLimitBurst

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			zlog.Info("Rate limiting through Redis", zap.String("addr", cfg.Redis.Addr))
			return middleware.NewRedisLimiter(rdb, rlCfg), func() { _ = rdb.Close() }
		}
		zlog.Warn("Redis unavailable, using local rate limiter", zap.Error(err))
		_ = rdb.Close()
	}

	local := middleware.NewLocalLimiter(rlCfg)
	go local.Run(ctx)
	return local, func() {}
}

func sweepSessions(ctx context.Context, sessions *booking.Manager, cfg config.BookingConfig, zlog *zap.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(cfg.SessionIdleTTL); n > 0 {
				zlog.Debug("Evicted idle booking sessions", zap.Int("count", n), zap.Int("active", sessions.Len()))
			}
		}
	}
}
