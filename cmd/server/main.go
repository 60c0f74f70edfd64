package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	httpapi "motorhome-booking-backend/internal/api/http"
	"motorhome-booking-backend/internal/cache"
	"motorhome-booking-backend/internal/config"
	"motorhome-booking-backend/internal/logger"
	"motorhome-booking-backend/internal/payment/redsys"
	"motorhome-booking-backend/internal/payment/stripe"
	"motorhome-booking-backend/internal/repository/postgres"
	"motorhome-booking-backend/internal/security"
	"motorhome-booking-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	migrate := flag.Bool("migrate", false, "Apply the database schema before serving")
	adminToken := flag.String("issue-admin-token", "", "Print an admin token for the given email and exit")
	flag.Parse()

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.InitializeWithFile(cfg.Log.Level, cfg.Log.Format, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   true,
	})

	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	if *adminToken != "" {
		token, err := tokenManager.GenerateAdminToken(*adminToken, *adminToken)
		if err != nil {
			log.Fatalf("Failed to issue admin token: %v", err)
		}
		fmt.Println(token)
		return
	}

	logger.Info("Starting Motorhome Booking Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "base_url", cfg.Server.BaseURL)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if *migrate {
		if err := postgres.Migrate(context.Background(), db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Info("Database schema applied")
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Idempotency and rate limiting share Redis when it is configured
	var redisClient *redis.Client
	idempotency := cache.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to redis", "error", err)
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		idempotency = cache.NewRedisStore(redisClient)
	} else {
		logger.Warn("Redis not configured, using in-process idempotency store")
	}
	defer idempotency.Close()

	// Payment gateways
	var gateways service.Gateways
	if cfg.Payments.Redsys.Enabled {
		gateways.Redsys = redsys.NewClient(redsys.Config{
			MerchantCode: cfg.Payments.Redsys.MerchantCode,
			Terminal:     cfg.Payments.Redsys.Terminal,
			SecretKey:    cfg.Payments.Redsys.SecretKey,
			Environment:  cfg.Payments.Redsys.Environment,
			MerchantName: cfg.Payments.Redsys.MerchantName,
		})
		logger.Info("Redsys gateway enabled", "environment", cfg.Payments.Redsys.Environment)
	}
	if cfg.Payments.Stripe.Enabled {
		gateways.Stripe = stripe.NewClient(cfg.Payments.Stripe.SecretKey, cfg.Payments.Stripe.WebhookSecret)
		logger.Info("Stripe gateway enabled", "fee_basis_points", cfg.Payments.Stripe.FeeBasisPoints)
	}

	// Initialize Services
	emailSvc := service.NewEmailServiceFromConfig(cfg)
	notifier := service.NewNotificationService(emailSvc, cfg.Email.AdminAddress)
	settings := service.SettingsFromConfig(cfg)

	pricingSvc := service.NewPricingService(
		store.VehicleRepository,
		store.LocationRepository,
		store.ExtraRepository,
		store.SeasonRepository,
		store.CouponRepository,
		store.OfferRepository,
		settings,
	)
	bookingSvc := service.NewBookingService(
		store.VehicleRepository,
		store.LocationRepository,
		store.ExtraRepository,
		store.SeasonRepository,
		store.CouponRepository,
		store.OfferRepository,
		store.BookingRepository,
		notifier,
		settings,
	)
	paymentSvc := service.NewPaymentService(
		store.BookingRepository,
		store.PaymentRepository,
		gateways,
		idempotency,
		notifier,
		settings,
	)

	// HTTP API
	rateLimiter, err := httpapi.NewRateLimiter(cfg.RateLimit.Rate, redisClient)
	if err != nil {
		log.Fatalf("Failed to configure rate limiter: %v", err)
	}
	handler := httpapi.NewHandler(pricingSvc, bookingSvc, paymentSvc, db)
	router := httpapi.NewRouter(handler, httpapi.NewAuthMiddleware(tokenManager), rateLimiter)

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	// gRPC health endpoint for the orchestrator
	var grpcServer *grpc.Server
	var healthSrv *health.Server
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		grpcServer = grpc.NewServer()
		healthSrv = health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthSrv)
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

		// Register reflection service for grpcurl
		reflection.Register(grpcServer)

		go func() {
			logger.Info("gRPC health server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down server...")
	if healthSrv != nil {
		healthSrv.Shutdown()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	notifier.Wait()
	logger.Info("Server stopped. Goodbye!")
}
