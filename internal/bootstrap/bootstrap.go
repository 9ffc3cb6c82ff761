// Package bootstrap wires the quiz pipeline from configuration for the cmd entrypoints.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"wiki-quiz/internal/adapter"
	"wiki-quiz/internal/adapter/extractor"
	"wiki-quiz/internal/adapter/fetcher"
	"wiki-quiz/internal/adapter/quizgen"
	"wiki-quiz/internal/cache"
	"wiki-quiz/internal/config"
	"wiki-quiz/internal/database"
	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/repository"
	"wiki-quiz/internal/service"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Components holds the long-lived resources of a process.
type Components struct {
	DB      *sqlx.DB
	Redis   *redis.Client
	Service service.QuizService
}

// Close releases the database and cache connections.
func (c *Components) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}

// Build connects to storage, applies migrations when enabled and assembles the QuizService.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	db, err := database.Open(ctx, cfg.DB, cfg.GetDSN(), logger)
	if err != nil {
		return nil, err
	}
	comps := &Components{DB: db}

	if cfg.DB.AutoMigrate {
		if err := database.RunMigrations(ctx, db, cfg.DB.Driver, logger); err != nil {
			_ = comps.Close()
			return nil, err
		}
	}

	repo, err := repository.NewArtifactDatabaseAdapter(db, cfg.DB.Driver)
	if err != nil {
		_ = comps.Close()
		return nil, err
	}

	var artifactCache domain.Cache
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			_ = comps.Close()
			return nil, err
		}
		comps.Redis = client
		artifactCache = adapter.NewRedisCacheAdapter(client)
		logger.Info("Artifact cache enabled", zap.String("address", cfg.Redis.Address))
	} else {
		logger.Info("Artifact cache disabled")
	}

	model, err := quizgen.NewModel(ctx, cfg.LLM)
	if err != nil {
		_ = comps.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	generator, err := quizgen.NewLLMQuizGenerator(model, cfg.LLM, logger.Named("llm"))
	if err != nil {
		_ = comps.Close()
		return nil, err
	}
	logger.Info("LLM client initialized",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model))

	store := service.NewArtifactStore(repo, artifactCache, cfg.Redis.TTL, logger.Named("store"))
	comps.Service = service.NewQuizService(store, service.Pipeline{
		Fetcher:   fetcher.NewHTTPFetcher(cfg.Fetcher, logger.Named("fetcher")),
		Extractor: extractor.NewWikiExtractor(),
		Prompts:   quizgen.NewPromptBuilder(cfg.Quiz),
		Generator: generator,
		Parser:    quizgen.NewParser(logger.Named("parser")),
	}, cfg.Pipeline, logger.Named("pipeline"))

	return comps, nil
}
