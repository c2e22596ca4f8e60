package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/api"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/auth"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/cache"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/config"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/database"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/prompt"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/queue"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/relevance"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/webhook"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	deps := api.Deps{}

	switch cfg.Database.Driver {
	case "postgres":
		db, err := database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
			slog.Error("migrations failed", "error", err)
			os.Exit(1)
		}

		deps.DB = db
		deps.Prompts = prompt.NewPostgres(db, nil)
		deps.Auth = auth.NewService(auth.NewPostgresStore(db), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	case "sqlite":
		store, err := prompt.NewSQLite(ctx, cfg.Database.SQLitePath, nil)
		if err != nil {
			slog.Error("sqlite unavailable", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		userStore, err := auth.NewSQLiteStore(ctx, store.DB())
		if err != nil {
			slog.Error("user store init failed", "error", err)
			os.Exit(1)
		}

		deps.Prompts = store
		deps.Auth = auth.NewService(userStore, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}

	// Redis is optional: it enables the live-prompt cache and, on
	// postgres, webhook dispatch through the task queue.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache and webhooks", "error", err)
		rdb.Close()
	} else {
		defer rdb.Close()
		deps.Redis = rdb
		deps.Live = cache.NewLivePrompts(cache.NewCache(rdb))

		if deps.DB != nil {
			queueClient := queue.NewClient(cfg.Redis)
			defer queueClient.Close()
			deps.Webhooks = webhook.NewService(deps.DB, queueClient)
		}
	}

	if cfg.Relevance.OpenAIKey != "" {
		chat := openai.NewClient(cfg.Relevance.OpenAIKey)
		deps.Selector = relevance.NewSelector(deps.Prompts, chat, cfg.Relevance.Model)
	} else {
		slog.Warn("OPENAI_API_KEY not set, relevance resolution disabled")
	}

	router := api.NewRouter(deps)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
