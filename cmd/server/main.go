package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lifeplan/internal/auth"
	"lifeplan/internal/blobstore"
	"lifeplan/internal/bootstrap"
	"lifeplan/internal/config"
	"lifeplan/internal/handler"
	"lifeplan/internal/middleware"
	"lifeplan/internal/scoring"
	authz "lifeplan/internal/service/auth"
	"lifeplan/internal/service/households"
	"lifeplan/internal/service/versions"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup structured logging
	logger, logCloser, err := config.NewLogger(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"driver", cfg.DatabaseDriver,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(ctx, cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Storage and lineage locks
	storage, err := bootstrap.OpenStorage(ctx, cfg, true, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer storage.Close()

	locker, err := bootstrap.NewLocker(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create lineage locker: %v", err)
	}
	defer locker.Close()

	// Object store for recordings and uploads
	blobs, err := blobstore.NewMinioStore(blobstore.Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
		CDNURL:    cfg.CDNURL,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	// Completion rulesets
	scores, err := scoring.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load scoring rulesets: %v", err)
	}
	logger.Info("scoring registry initialized")

	// Services
	authorizer := authz.NewMembershipAuthorizer(storage.Households)
	versionService := versions.NewService(versions.Dependencies{
		DocumentRepo:  storage.Documents,
		HouseholdRepo: storage.Households,
		TxManager:     storage.TxManager,
		Locker:        locker,
		Authorizer:    authorizer,
		Scores:        scores,
		Blobs:         blobs,
		Logger:        logger,
	})
	householdService := households.NewService(storage.Households, storage.TxManager, authorizer, logger)

	// Health probes
	checks := map[string]handler.HealthCheck{
		"database": storage.Ping,
	}
	if locker.Ping != nil {
		checks["redis"] = locker.Ping
	}

	// Handlers
	handlers := handler.Handlers{
		Health:    handler.NewHealthHandler(checks, logger),
		Profile:   handler.NewProfileHandler(versionService, versionService, logger),
		Vision:    handler.NewVisionHandler(versionService, versionService, versionService, logger),
		Recording: handler.NewRecordingHandler(versionService, blobs, logger),
		Household: handler.NewHouseholdHandler(householdService, logger),
	}

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handlers)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	h = middleware.AuthMiddleware(jwtVerifier)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
