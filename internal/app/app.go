// Package app wires configuration, model clients and stores into the
// object graph the binaries run. The HTTP server and the Telegram bot
// both sit on top of the same App.
package app

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"ai-menu-builder/internal/config"
	"ai-menu-builder/internal/database"
	"ai-menu-builder/internal/dishes"
	"ai-menu-builder/internal/llm"
	"ai-menu-builder/internal/menu"
	"ai-menu-builder/internal/metrics"
	"ai-menu-builder/internal/profile"
	"ai-menu-builder/internal/storage"
)

// App holds the application's dependencies.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	DB           *database.DB
	TextGen      llm.TextGenerator
	EmbedGen     llm.EmbeddingGenerator
	Profiles     *profile.SQLiteStore
	Loader       *profile.Loader
	Orchestrator *menu.Orchestrator
	Menus        *menu.Repository
	Metrics      *metrics.Store
	Importer     *dishes.Importer
	Library      *dishes.Library
	Dishes       *dishes.Repository

	closers []func() error
}

// New builds the full dependency graph from configuration. The text
// model follows the configured provider; embeddings always come from
// Gemini and degrade to nothing when no Gemini key is set.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.GeminiAPIKey != "" {
		geminiClient, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEmbeddingModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, geminiClient.Close)
		a.TextGen = geminiClient
		a.EmbedGen = geminiClient
	}
	if cfg.LLMProvider == config.ProviderGroq {
		a.TextGen = llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel)
	}

	if a.EmbedGen != nil {
		cached, err := llm.NewCachedEmbeddingGenerator(a.EmbedGen, filepath.Join(cfg.DataDir, "embedding_cache.json"))
		if err != nil {
			logger.Warn("Embedding cache disabled", zap.Error(err))
		} else {
			a.EmbedGen = cached
			a.closers = append(a.closers, cached.SaveCache)
		}
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	var recorder menu.AttemptRecorder
	if cfg.SaveArtifacts {
		artifacts, err := storage.NewArtifactStore(filepath.Join(cfg.DataDir, "artifacts"), logger)
		if err != nil {
			logger.Warn("Artifact store disabled", zap.Error(err))
		} else {
			recorder = artifacts
		}
	}

	a.Profiles = profile.NewSQLiteStore(db.SQL)
	if cfg.ProfileServiceURL != "" {
		a.Loader = profile.NewLoader(profile.NewRemoteStore(cfg.ProfileServiceURL, cfg.ProfileAdminKey))
	} else {
		a.Loader = profile.NewLoader(a.Profiles)
	}

	a.Dishes = dishes.NewRepository(db.SQL)
	a.Library = dishes.NewLibrary(a.Dishes, a.EmbedGen, llm.NewVectorRepository(db.SQL), logger)
	a.Importer = dishes.NewImporter(a.TextGen, nil)
	a.Orchestrator = menu.NewOrchestrator(a.TextGen, recorder, logger, menu.Options{})
	a.Menus = menu.NewRepository(db.SQL)
	a.Metrics = metrics.NewStore(db.SQL)

	return a, nil
}

// Close releases held resources in reverse construction order. The
// first error wins; later closers still run.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
