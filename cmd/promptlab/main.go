package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xaenox/promptlab/internal/bot"
	"github.com/xaenox/promptlab/internal/category"
	"github.com/xaenox/promptlab/internal/orchestrator"
	"github.com/xaenox/promptlab/internal/prompts"
	"github.com/xaenox/promptlab/internal/provider"
	"github.com/xaenox/promptlab/internal/session"
	"github.com/xaenox/promptlab/internal/storage"
	"github.com/xaenox/promptlab/internal/workspace"
	"github.com/xaenox/promptlab/pkg/config"
	"github.com/xaenox/promptlab/pkg/logger"
	"go.uber.org/zap"
)

const configPath = "config.yaml"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", configPath, err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := openStorage(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}
	defer store.Close()

	ai := provider.New(provider.Config{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		Model:             cfg.OpenAI.Model,
		AdvancedModel:     cfg.OpenAI.AdvancedModel,
		MaxTokens:         cfg.OpenAI.MaxTokens,
		Temperature:       cfg.OpenAI.Temperature,
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
	}, log)

	// Every chat gets its own namespace in the shared store.
	newSession := func(chatID int64) *bot.Session {
		chatStore := storage.Prefixed{
			Storage: store,
			Prefix:  fmt.Sprintf("%schat%d_", cfg.Storage.KeyPrefix, chatID),
		}
		chatLog := log.With(zap.Int64("chat_id", chatID))

		sessions := session.NewService(chatStore, chatLog, session.WithDelay(cfg.Session.LoginDelay))
		repo := prompts.NewRepository(chatStore, chatLog)
		index := category.NewIndex(chatStore, chatLog)
		orch := orchestrator.New(ai, repo, chatLog, orchestrator.WithCostPer1K(cfg.Pricing.CostPer1KInput))
		return &bot.Session{
			Auth:      sessions,
			Workspace: workspace.New(sessions, repo, index, orch, chatLog),
		}
	}

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, newSession, log)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(ctx); err != nil {
		log.Fatal("Bot error", zap.Error(err))
	}
	log.Info("Shutting down")
}

func openStorage(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case "postgres":
		log.Info("Using PostgreSQL storage")
		return storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			ConnectAttempts: 5,
		}, log)
	case "redis":
		log.Info("Using Redis storage")
		return storage.NewRedisStorage(ctx, storage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
	default:
		log.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	}
}
