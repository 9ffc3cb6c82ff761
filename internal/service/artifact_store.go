package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"wiki-quiz/internal/cache"
	"wiki-quiz/internal/domain"

	"go.uber.org/zap"
)

// ArtifactStore is the single consistency-bearing component of the pipeline.
type ArtifactStore interface {
	// Lookup returns the artifact for url, or nil when absent. No side effects besides cache fill.
	Lookup(ctx context.Context, url string) (*domain.Artifact, error)

	// UpsertFromPipeline overwrites an existing artifact in place or creates a new one.
	// When a concurrent writer wins the insert, the winner's artifact is returned.
	UpsertFromPipeline(ctx context.Context, url string, fields domain.PipelineFields) (*domain.Artifact, error)

	GetByID(ctx context.Context, id int64) (*domain.Artifact, error)
	List(ctx context.Context, limit, offset int) ([]*domain.ArtifactSummary, error)
	Ping(ctx context.Context) error
}

type artifactStore struct {
	repo     domain.ArtifactRepository
	cache    domain.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewArtifactStore creates the store. cache may be nil, which disables the read-through cache.
func NewArtifactStore(repo domain.ArtifactRepository, c domain.Cache, cacheTTL time.Duration, logger *zap.Logger) ArtifactStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &artifactStore{
		repo:     repo,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// cachedArtifact is the cache representation; the raw markup snapshot is left out.
type cachedArtifact struct {
	ID            int64             `json:"id"`
	URL           string            `json:"url"`
	Title         string            `json:"title,omitempty"`
	Summary       string            `json:"summary,omitempty"`
	Sections      []string          `json:"sections"`
	ExtractedText string            `json:"extracted_text"`
	Quiz          []domain.QuizItem `json:"quiz"`
	RelatedTopics []string          `json:"related_topics"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toCached(a *domain.Artifact) cachedArtifact {
	return cachedArtifact{
		ID:            a.ID,
		URL:           a.URL,
		Title:         a.Title,
		Summary:       a.Summary,
		Sections:      a.Sections,
		ExtractedText: a.ExtractedText,
		Quiz:          a.Quiz,
		RelatedTopics: a.RelatedTopics,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func (c cachedArtifact) toArtifact() *domain.Artifact {
	a := &domain.Artifact{
		ID:            c.ID,
		URL:           c.URL,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	a.Apply(domain.PipelineFields{
		Title:         c.Title,
		Summary:       c.Summary,
		Sections:      c.Sections,
		ExtractedText: c.ExtractedText,
		Quiz:          c.Quiz,
		RelatedTopics: c.RelatedTopics,
	})
	return a
}

func (s *artifactStore) Lookup(ctx context.Context, url string) (*domain.Artifact, error) {
	if cached := s.getCached(ctx, url); cached != nil {
		return cached, nil
	}

	artifact, err := s.repo.GetByURL(ctx, url)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up quiz entry", err)
	}
	if artifact == nil {
		return nil, nil
	}
	s.putCached(ctx, artifact)
	return artifact, nil
}

func (s *artifactStore) UpsertFromPipeline(ctx context.Context, url string, fields domain.PipelineFields) (*domain.Artifact, error) {
	existing, err := s.repo.GetByURL(ctx, url)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up quiz entry", err)
	}

	if existing != nil {
		// Evicted first so a failed cache write below cannot leave the old entry in place.
		s.dropCached(ctx, url)
		existing.Apply(fields)
		if err := s.repo.Update(ctx, existing); err != nil {
			var domainErr *domain.DomainError
			if errors.As(err, &domainErr) {
				return nil, err
			}
			return nil, domain.NewInternalError("failed to update quiz entry", err)
		}
		s.logger.Info("Quiz entry refreshed in place", zap.String("url", url), zap.Int64("id", existing.ID))
		s.putCached(ctx, existing)
		return existing, nil
	}

	candidate := domain.NewArtifact(url, fields)
	err = s.repo.Insert(ctx, candidate)
	switch {
	case err == nil:
		s.logger.Info("Quiz entry created", zap.String("url", url), zap.Int64("id", candidate.ID))
		s.putCached(ctx, candidate)
		return candidate, nil
	case errors.Is(err, domain.ErrDuplicateKey):
		winner, readErr := s.repo.GetByURL(ctx, url)
		if readErr != nil {
			return nil, domain.NewInternalError("failed to re-read quiz entry after conflict", readErr)
		}
		if winner == nil {
			return nil, domain.NewInternalError("quiz entry vanished after insert conflict", err)
		}
		s.logger.Info("Insert conflict resolved, returning concurrent winner",
			zap.String("url", url), zap.Int64("id", winner.ID))
		s.putCached(ctx, winner)
		return winner, nil
	default:
		return nil, domain.NewInternalError("failed to insert quiz entry", err)
	}
}

func (s *artifactStore) GetByID(ctx context.Context, id int64) (*domain.Artifact, error) {
	artifact, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewInternalError("failed to get quiz entry", err)
	}
	if artifact == nil {
		return nil, domain.NewArtifactNotFoundError(id)
	}
	return artifact, nil
}

func (s *artifactStore) List(ctx context.Context, limit, offset int) ([]*domain.ArtifactSummary, error) {
	summaries, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, domain.NewInternalError("failed to list quiz entries", err)
	}
	return summaries, nil
}

// Ping checks the database and, when configured, the cache.
func (s *artifactStore) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return domain.NewInternalError("database is unreachable", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return domain.NewInternalError("cache is unreachable", err)
		}
	}
	return nil
}

func (s *artifactStore) getCached(ctx context.Context, url string) *domain.Artifact {
	if s.cache == nil {
		return nil
	}
	key := cache.ArtifactURLKey(url)
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn("Artifact cache read failed", zap.Error(err), zap.String("key", key))
		}
		return nil
	}
	var c cachedArtifact
	if err := json.Unmarshal([]byte(data), &c); err != nil || c.ID == 0 {
		s.logger.Warn("Discarding unreadable artifact cache entry", zap.Error(err), zap.String("key", key))
		return nil
	}
	s.logger.Debug("Artifact cache hit", zap.String("key", key))
	return c.toArtifact()
}

func (s *artifactStore) putCached(ctx context.Context, artifact *domain.Artifact) {
	if s.cache == nil || artifact == nil {
		return
	}
	key := cache.ArtifactURLKey(artifact.URL)
	data, err := json.Marshal(toCached(artifact))
	if err != nil {
		s.logger.Warn("Failed to marshal artifact for cache", zap.Error(err), zap.String("key", key))
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
		s.logger.Warn("Artifact cache write failed", zap.Error(err), zap.String("key", key))
		s.dropCached(ctx, artifact.URL)
	}
}

func (s *artifactStore) dropCached(ctx context.Context, url string) {
	if s.cache == nil {
		return
	}
	key := cache.ArtifactURLKey(url)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("Artifact cache eviction failed", zap.Error(err), zap.String("key", key))
	}
}
