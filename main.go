package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-queueskip/internal/auth"
	"ms-queueskip/internal/availability"
	"ms-queueskip/internal/checkout"
	"ms-queueskip/internal/checkout/checkout_api"
	"ms-queueskip/internal/config"
	"ms-queueskip/internal/database/migrations"
	"ms-queueskip/internal/kafka"
	"ms-queueskip/internal/ledger"
	ledgerdb "ms-queueskip/internal/ledger/db"
	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/metrics"
	"ms-queueskip/internal/models"
	"ms-queueskip/internal/reconcile"
	reconciledb "ms-queueskip/internal/reconcile/db"
	"ms-queueskip/internal/reporting"
	"ms-queueskip/internal/reporting/reporting_api"
	"ms-queueskip/internal/schedule"
	scheduledb "ms-queueskip/internal/schedule/db"
	"ms-queueskip/internal/schedule/schedule_api"
)

// kafkaOutcomeSink routes webhook outcomes through the payment outcome topic
// so reconciliation happens on the consumer side.
type kafkaOutcomeSink struct {
	producer *kafka.Producer
}

func (s *kafkaOutcomeSink) Submit(ctx context.Context, outcome models.PaymentOutcome) error {
	return s.producer.PublishPaymentOutcome(ctx, outcome)
}

// directOutcomeSink reconciles inline when Kafka is disabled.
type directOutcomeSink struct {
	reconciler *reconcile.Service
}

func (s *directOutcomeSink) Submit(ctx context.Context, outcome models.PaymentOutcome) error {
	return s.reconciler.OnPaymentOutcome(ctx, outcome)
}

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	log.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

// startSweeper reclaims expired holds on a fixed interval. Correctness does
// not depend on it; capacity reads filter expired holds regardless.
func startSweeper(ctx context.Context, ledgerSvc *ledger.Service, interval time.Duration, log *logger.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info("SWEEPER", "Background sweeper stopped")
				return
			case <-ticker.C:
				if _, err := ledgerSvc.SweepExpired(ctx); err != nil {
					log.Error("SWEEPER", fmt.Sprintf("Background sweep failed: %v", err))
				}
			}
		}
	}()
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Queue Skip Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if os.Getenv("AUTO_MIGRATE") != "false" {
		opts := migrations.DefaultOptions()
		runner := migrations.NewRunner(bunDB, opts)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
		}
		log.Info("DATABASE", "Schema migrations applied")
	}

	checkout.InitStripe(cfg.Stripe.SecretKey)
	metrics.StartRuntimeCollector(15 * time.Second)

	// Stores
	ledgerDB := &ledgerdb.DB{Bun: bunDB}
	scheduleDB := &scheduledb.DB{Bun: bunDB}
	auditDB := &reconciledb.DB{Bun: bunDB}

	// Core services
	ledgerService := ledger.NewService(ledgerDB, log, cfg.Ledger.HoldTTL)
	snapshotCache := availability.NewCache(redisClient, cfg.Redis.AvailabilityTTL)
	availabilityService := availability.NewService(scheduleDB, ledgerDB, ledgerService, snapshotCache, log)
	scheduleService := schedule.NewService(scheduleDB, snapshotCache, log)
	reportingService := reporting.NewService(bunDB, log)

	// Messaging and reconciliation
	var saleProducer *kafka.Producer
	var outcomeSink checkout.OutcomeSink
	if cfg.Kafka.Enabled {
		requiredTopics := []string{
			cfg.Kafka.Topics.PaymentOutcome,
			cfg.Kafka.Topics.SaleConfirmed,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}

		saleProducer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.SaleConfirmed)
		defer saleProducer.Close()
	}

	var reconcilePublisher reconcile.Publisher
	if saleProducer != nil {
		reconcilePublisher = saleProducer
	}
	reconcileService := reconcile.NewService(ledgerService, auditDB, reconcilePublisher, log)

	if cfg.Kafka.Enabled {
		outcomeProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.PaymentOutcome)
		defer outcomeProducer.Close()
		outcomeSink = &kafkaOutcomeSink{producer: outcomeProducer}

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.PaymentOutcome, cfg.Kafka.GroupID)
		defer consumer.Close()
		go consumer.Start(ctx, reconcileService.OnPaymentOutcome)
		log.Info("KAFKA", "Payment outcome consumer started")
	} else {
		outcomeSink = &directOutcomeSink{reconciler: reconcileService}
		log.Info("KAFKA", "Kafka disabled, reconciling payment outcomes inline")
	}

	checkoutService := checkout.NewService(
		scheduleDB,
		availabilityService,
		ledgerService,
		&checkout.StripeGateway{
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
		},
		outcomeSink,
		log,
	)

	checkoutHandler := checkout_api.NewHandler(checkoutService, availabilityService, cfg.Stripe, log)
	scheduleHandler := schedule_api.NewHandler(scheduleService, log)
	reportingHandler := reporting_api.NewHandler(reportingService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Post("/api/webhook/stripe", checkoutHandler.StripeWebhook)
	r.Route("/api/venues", func(r chi.Router) {
		r.Get("/", scheduleHandler.ListVenues)
		r.Get("/{venueId}", scheduleHandler.GetVenue)
		r.Get("/{venueId}/availability", checkoutHandler.GetAvailability)
		r.Post("/{venueId}/reservations", checkoutHandler.CreateReservation)
	})
	log.Info("ROUTER", "Public venue routes registered under /api/venues")

	// --- Admin Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Admin.JWTSecret))
		log.Info("AUTH", "JWT middleware applied to admin API routes")

		r.Route("/api/admin", func(r chi.Router) {
			r.Route("/venues/{venueId}", func(r chi.Router) {
				r.Put("/schedule", scheduleHandler.UpsertDaySchedule)
				r.Post("/time-slots", scheduleHandler.ApplyTimeSlots)
				r.Get("/summary", reportingHandler.GetVenueSummary)
			})
			r.Route("/schedules/{dayScheduleId}", func(r chi.Router) {
				r.Put("/hours", scheduleHandler.UpsertHourWindow)
				r.Patch("/active", scheduleHandler.ToggleDayActive)
				r.Delete("/", scheduleHandler.DeleteDaySchedule)
			})
			r.Get("/sales", reportingHandler.ListSales)
			r.Get("/audit-log", reportingHandler.ListAuditLog)
		})
		log.Info("ROUTER", "Admin routes registered under /api/admin")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Info("SWEEPER", fmt.Sprintf("Starting background hold sweeper (interval %s)", cfg.Ledger.SweepInterval))
	startSweeper(ctx, ledgerService, cfg.Ledger.SweepInterval, log)

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Queue Skip Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Queue Skip Service shutdown complete")
	}
}
