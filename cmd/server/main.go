package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rensmac/chat-gateway/internal/api"
	"github.com/rensmac/chat-gateway/internal/cache"
	"github.com/rensmac/chat-gateway/internal/config"
	"github.com/rensmac/chat-gateway/internal/memory"
	"github.com/rensmac/chat-gateway/internal/model"
	"github.com/rensmac/chat-gateway/internal/model/azure"
	"github.com/rensmac/chat-gateway/internal/model/gemini"
	"github.com/rensmac/chat-gateway/internal/model/ollama"
	"github.com/rensmac/chat-gateway/internal/pool"
	"github.com/rensmac/chat-gateway/internal/redis"
	"github.com/rensmac/chat-gateway/internal/service"
	"github.com/rensmac/chat-gateway/internal/worker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("provider", cfg.Model.DefaultProvider).
		Msg("Starting chat gateway")

	// Register model providers
	router := model.NewRouter(cfg.Model.DefaultProvider)
	router.RegisterProvider(azure.NewProvider(cfg.Model.Azure))
	if cfg.Model.Gemini.APIKey != "" {
		router.RegisterProvider(gemini.NewProvider(cfg.Model.Gemini))
	}
	if cfg.Model.Ollama.Host != "" {
		router.RegisterProvider(ollama.NewProvider(cfg.Model.Ollama.Host, cfg.Model.Ollama.DefaultModel))
	}

	provider, err := router.GetProvider(cfg.Model.DefaultProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to select model provider")
	}
	log.Info().Str("provider", provider.Name()).Str("model", provider.DefaultModel()).Msg("Model provider ready")

	// Shared state
	sessions := memory.NewStore(cfg.Session.WindowSize, cfg.Session.MaxSessions)
	responseCache := cache.New(cfg.Cache.Capacity)
	stats := pool.NewStats(cfg.Pool.ReuseWindow)
	jobs := worker.NewPool(cfg.Workers.PoolSize, cfg.Workers.QueueSize)
	defer jobs.Stop()

	// Connection pool maintenance
	maintainer := pool.NewMaintainer(provider, stats, jobs, cfg.Pool.IdleThreshold, cfg.Pool.PollInterval)

	warmupCtx, cancelWarmup := context.WithTimeout(context.Background(), cfg.Model.RequestTimeout)
	maintainer.Warmup(warmupCtx, cfg.Pool.WarmupCount)
	cancelWarmup()

	maintainerCtx, stopMaintainer := context.WithCancel(context.Background())
	defer stopMaintainer()
	go maintainer.Run(maintainerCtx)

	// Orchestrator
	chatService := service.NewChatService(
		provider,
		sessions,
		responseCache,
		stats,
		maintainer,
		jobs,
		cfg.Model.RequestTimeout,
	)
	chatService.Preload(cfg.Cache.Preload)

	// Optional redis-backed rate limiting
	var rateLimiter *redis.RateLimiter
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		rateLimiter = redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
	}

	// Initialize router
	handlerTimeout := cfg.Model.RequestTimeout + 10*time.Second
	httpRouter := api.NewRouter(chatService, rateLimiter, handlerTimeout)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopMaintainer()
	log.Info().Msg("Server stopped")
}
