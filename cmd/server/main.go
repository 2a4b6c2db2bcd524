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
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	opsgrpc "carrental-backend/internal/api/grpc"
	httpapi "carrental-backend/internal/api/http"
	"carrental-backend/internal/config"
	"carrental-backend/internal/db"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository/postgres"
	"carrental-backend/internal/security"
	"carrental-backend/internal/service"
	"carrental-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	migrate := flag.Bool("migrate", false, "Apply database migrations before serving")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting car rental backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "rest", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress(), "timezone", cfg.Server.Timezone)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrate {
		logger.Info("Applying database migrations...")
		if err := db.Migrate(ctx, cfg.GetDatabaseConnectionString(), "latest"); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	sqlDB, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(sqlDB)
	loc, _ := cfg.Location() // checked by Validate

	// Storage
	images, err := storage.NewLocalStorage(cfg.Storage.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}
	logger.Info("Using local image storage", "upload_dir", cfg.Storage.UploadDir)

	// Services
	tokens := security.NewTokenManager(cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshTokenExpiry)*time.Minute)
	emailSvc := service.NewEmailService(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName, loc)
	noteSvc := service.NewNotificationService(store.NotificationRepository)
	authSvc := service.NewAuthService(store.UserRepository, tokens)
	userSvc := service.NewUserService(store.UserRepository)
	vehicleSvc := service.NewVehicleService(store, store.VehicleRepository, store.RentalRepository)
	imageSvc := service.NewImageStorageService(store.VehicleRepository, images, cfg.Storage.AllowedTypes, cfg.Storage.MaxFileSize<<20)
	locationSvc := service.NewLocationService(store.LocationRepository)
	rentalSvc := service.NewRentalService(store, store.RentalRepository, store.VehicleRepository, store.LocationRepository,
		store.UserRepository, noteSvc, emailSvc, loc)
	ledgerSvc := service.NewLedgerService(store, store.UserRepository, store.LedgerRepository, cfg.Ledger.MaxTopUpAmount())
	promoSvc := service.NewPromoService(store, store.PromoRepository)
	adminSvc := service.NewAdminService(store, store.UserRepository, store.StatsRepository, noteSvc)

	// REST
	router := httpapi.NewRouter(httpapi.Handlers{
		Auth:      httpapi.NewAuthHandler(authSvc),
		Users:     httpapi.NewUserHandler(userSvc),
		Vehicles:  httpapi.NewVehicleHandler(vehicleSvc, imageSvc),
		Locations: httpapi.NewLocationHandler(locationSvc),
		Rentals:   httpapi.NewRentalHandler(rentalSvc),
		Account:   httpapi.NewAccountHandler(ledgerSvc, promoSvc, noteSvc),
		Admin:     httpapi.NewAdminHandler(adminSvc, promoSvc),
	}, httpapi.NewAuthenticator(tokens, authSvc), store)

	restServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Ops gRPC
	ops := opsgrpc.NewOpsServer(store, 30*time.Second)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	go ops.Watch(ctx)
	go func() {
		logger.Info("gRPC ops server listening", "address", cfg.GetGRPCAddress())
		if err := ops.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	go func() {
		logger.Info("REST server listening", "address", cfg.GetServerAddress())
		if err := restServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("REST server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("REST shutdown failed", "error", err)
	}
	ops.GracefulStop()
	logger.Info("Server stopped")
}
