package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/openveil/veilforum/internal/auth"
	"github.com/openveil/veilforum/internal/background"
	"github.com/openveil/veilforum/internal/config"
	"github.com/openveil/veilforum/internal/crypto"
	"github.com/openveil/veilforum/internal/database"
	"github.com/openveil/veilforum/internal/handlers"
	middlewareCustom "github.com/openveil/veilforum/internal/middleware"
	"github.com/openveil/veilforum/internal/repositories"
	"github.com/openveil/veilforum/internal/routes"
	"github.com/openveil/veilforum/internal/services"
	pkghttp "github.com/openveil/veilforum/pkg/http"
	pkglogger "github.com/openveil/veilforum/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	identityRepo := repositories.NewIdentityRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)

	// Message cipher
	cipher, err := crypto.NewMessageCipher(cfg.Forum.EncryptionKey)
	if err != nil {
		logger.Error("failed to initialize message cipher", slog.Any("error", err))
		os.Exit(1)
	}

	// Token manager and timing delay
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   100,
		RandomDelayMs: 100,
	})

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	accountService := services.NewAccountService(identityRepo, sessionRepo, tokenManager, timingDelay, logger, auditLogger, cfg.Auth)
	messageService := services.NewMessageService(messageRepo, cipher, logger, auditLogger, cfg.Forum)
	statsService := services.NewStatsService(identityRepo, messageRepo, logger, cfg.Forum)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	cookieConfig := auth.CookieConfig{
		Secure:   cfg.Server.Env == "production",
		SameSite: "strict",
	}
	authHandler := handlers.NewAuthHandler(accountService, ipConfig, cookieConfig)
	messageHandler := handlers.NewMessageHandler(messageService)
	statsHandler := handlers.NewStatsHandler(statsService)

	// Background sweeper
	sweeper := background.NewSweeper(messageRepo, sessionRepo, logger, cfg.Forum)

	// Setup router
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, messageHandler, statsHandler, tokenManager, sessionRepo)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
