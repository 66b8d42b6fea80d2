package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/contest-hub/config"
	"github.com/Dosada05/contest-hub/countdown"
	_ "github.com/Dosada05/contest-hub/docs"
	"github.com/Dosada05/contest-hub/handlers"
	"github.com/Dosada05/contest-hub/live"
	"github.com/Dosada05/contest-hub/query"
	"github.com/Dosada05/contest-hub/repositories"
	api "github.com/Dosada05/contest-hub/routes"
	"github.com/Dosada05/contest-hub/services"
	"github.com/Dosada05/contest-hub/storage"
	"github.com/Dosada05/contest-hub/views"
	"github.com/go-chi/chi/v5"
)

const (
	cacheCleanupInterval = time.Minute
	shutdownTimeout      = 15 * time.Second
)

// @title        ContestHub API
// @version      1.0
// @description  Live countdowns and leaderboard data behind the ContestHub web front end.
// @BasePath     /
func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("api", cfg.APIBaseURL))

	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	// Клиент REST API и кэш запросов
	apiClient, err := repositories.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	if err != nil {
		logger.Error("failed to create API client", slog.Any("error", err))
		os.Exit(1)
	}
	cache := query.NewClient(cfg.QueryCacheTTL, logger)
	stopCleanup := cache.StartCleanupWorker(cacheCleanupInterval)
	defer stopCleanup()

	identity, err := repositories.NewIdentityToolkitProvider(rootCtx, cfg.IdentityAPIKey)
	if err != nil {
		logger.Error("failed to initialize identity provider", slog.Any("error", err))
		os.Exit(1)
	}

	var federated repositories.FederatedProvider
	if cfg.GoogleEnabled() {
		federated, err = repositories.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL())
		if err != nil {
			logger.Error("failed to initialize Google sign-in", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Google sign-in enabled", slog.String("redirect_url", cfg.GoogleRedirectURL()))
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set, Google sign-in disabled")
	}

	// Инициализация загрузчика файлов (Cloudflare R2). Без настроек загрузка отключена.
	uploader := storage.NewDisabledUploader()
	r2Config := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	uploadsEnabled := r2Config.Enabled()
	if uploadsEnabled {
		uploader, err = storage.NewCloudflareR2Uploader(rootCtx, r2Config)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 settings missing, image uploads disabled")
	}

	// Инициализация репозиториев
	contestRepo := repositories.NewAPIContestRepository(apiClient)
	paymentRepo := repositories.NewAPIPaymentRepository(apiClient)
	userRepo := repositories.NewAPIUserRepository(apiClient)
	logger.Info("Repositories initialized")

	trackers := countdown.NewRegistry()
	inflight := services.NewInFlight()

	// Хаб читает дедлайны через отдельный экземпляр сервиса: основному нужен сам хаб как notifier.
	countdownSource := services.NewContestService(contestRepo, paymentRepo, cache, trackers, inflight, nil, logger)
	wsHub := live.NewHub(countdownSource, trackers, logger)
	go wsHub.Run(rootCtx)
	logger.Info("WebSocket Hub started")

	// Инициализация сервисов
	authService, err := services.NewAuthService(identity, userRepo, federated, cfg.SessionSecret, cfg.SessionTTL, logger)
	if err != nil {
		logger.Error("failed to initialize auth service", slog.Any("error", err))
		os.Exit(1)
	}
	roleResolver := services.NewRoleResolver(userRepo, cache, logger)
	contestService := services.NewContestService(contestRepo, paymentRepo, cache, trackers, inflight, wsHub, logger)
	submissionService := services.NewSubmissionService(contestRepo, paymentRepo, userRepo, cache, trackers, inflight, wsHub, logger)
	creatorService := services.NewCreatorService(contestRepo, cache, uploader, inflight, trackers, wsHub, logger)
	adminService := services.NewAdminService(contestRepo, userRepo, cache, inflight, trackers, wsHub, logger)
	userService := services.NewUserService(userRepo, contestRepo, paymentRepo, identity, cache, uploader, logger)
	paymentService := services.NewPaymentService(paymentRepo, cache, wsHub, logger)
	leaderboardService := services.NewLeaderboardService(userRepo, cache)
	logger.Info("Services initialized")

	// Инициализация обработчиков HTTP
	renderer, err := views.New()
	if err != nil {
		logger.Error("failed to parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	responder := handlers.NewResponder(renderer, logger)
	h := api.Handlers{
		Responder:   responder,
		Auth:        handlers.NewAuthHandler(authService, responder),
		Contest:     handlers.NewContestHandler(contestService, responder),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService, responder),
		Payment:     handlers.NewPaymentHandler(paymentService, responder),
		Dashboard:   handlers.NewDashboardHandler(userService, creatorService, adminService, authService, uploadsEnabled, responder),
		Creator:     handlers.NewCreatorHandler(creatorService, submissionService, uploadsEnabled, responder),
		Admin:       handlers.NewAdminHandler(adminService, responder),
		API:         handlers.NewAPIHandler(contestService, responder),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, contestService, cfg.CORSAllowedOrigins, logger),
	}
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, h, api.Options{
		Sessions:       authService,
		Roles:          roleResolver,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.APITimeout + 5*time.Second,
		Logger:         logger,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.APITimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr), slog.String("public_url", cfg.PublicBaseURL))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Хаб закрывает вебсокеты сам: Shutdown не ждёт hijacked-соединения.
		stopRoot()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	stats := cache.Stats()
	logger.Info("application exited", slog.Int("cache_entries", stats.Entries), slog.Int64("cache_hits", stats.Hits), slog.Int64("cache_misses", stats.Misses))
}
