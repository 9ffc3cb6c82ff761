package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"wiki-quiz/internal/config"
	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/util"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// GenerateRequest asks for the quiz of one reference URL.
type GenerateRequest struct {
	URL string
	// Refresh re-runs the pipeline even when an artifact exists and overwrites it in place.
	Refresh bool
}

// QuizService defines the inbound operations of the quiz pipeline.
type QuizService interface {
	Generate(ctx context.Context, req GenerateRequest) (*domain.GenerationResult, error)
	List(ctx context.Context, limit, offset int) ([]*domain.ArtifactSummary, error)
	GetByID(ctx context.Context, id int64) (*domain.Artifact, error)
	Health(ctx context.Context) error
}

// Pipeline bundles the stage collaborators of a generation run.
type Pipeline struct {
	Fetcher   domain.ContentFetcher
	Extractor domain.TextExtractor
	Prompts   domain.PromptBuilder
	Generator domain.QuizGenerator
	Parser    domain.ReplyParser
}

type quizService struct {
	store     ArtifactStore
	pipeline  Pipeline
	rawMarkup string
	sanitizer *bluemonday.Policy
	group     singleflight.Group
	logger    *zap.Logger
}

// NewQuizService creates the orchestrating service.
func NewQuizService(store ArtifactStore, pipeline Pipeline, cfg config.PipelineConfig, logger *zap.Logger) QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	rawMarkup := cfg.RawMarkup
	if rawMarkup == "" {
		rawMarkup = config.RawMarkupKeep
	}
	return &quizService{
		store:     store,
		pipeline:  pipeline,
		rawMarkup: rawMarkup,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger,
	}
}

// Generate returns the stored artifact for req.URL, running the pipeline on a miss.
// Concurrent calls for the same URL in this process share one pipeline run.
func (s *quizService) Generate(ctx context.Context, req GenerateRequest) (*domain.GenerationResult, error) {
	if req.URL == "" {
		return nil, domain.NewInvalidInputError("url is required")
	}

	if !req.Refresh {
		existing, err := s.store.Lookup(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Debug("Serving stored quiz", zap.String("url", req.URL), zap.Int64("id", existing.ID))
			return &domain.GenerationResult{Artifact: existing, Cached: true, Degraded: existing.Degraded()}, nil
		}
	}

	key := req.URL
	if req.Refresh {
		key = "refresh:" + req.URL
	}
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// the shared run must not die with whichever caller started it
		return s.runPipeline(context.WithoutCancel(ctx), req.URL)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		result := *res.Val.(*domain.GenerationResult)
		return &result, nil
	}
}

// runPipeline performs Fetch, Extract, Build, Generate, Parse and Upsert strictly in order.
// Nothing is written unless every stage before Upsert succeeded.
func (s *quizService) runPipeline(ctx context.Context, url string) (*domain.GenerationResult, error) {
	log := s.logger.With(zap.String("run_id", util.NewRunID()), zap.String("url", url))
	start := time.Now()
	log.Info("Quiz pipeline started")

	markup, err := s.pipeline.Fetcher.Fetch(ctx, url)
	if err != nil {
		log.Warn("Fetch failed", zap.Error(err))
		return nil, err
	}
	log.Debug("Fetched article", zap.Int("bytes", len(markup)))

	content := s.pipeline.Extractor.Extract(markup)
	log.Debug("Extracted article",
		zap.String("title", content.Title),
		zap.Int("sections", len(content.Sections)),
		zap.Int("text_chars", len(content.ExtractedText)))

	prompt := s.pipeline.Prompts.Build(content, 0)

	reply, err := s.pipeline.Generator.Generate(ctx, prompt)
	if err != nil {
		log.Warn("Generation failed", zap.Error(err))
		return nil, err
	}

	parsed := s.pipeline.Parser.Parse(reply)
	if parsed.Degraded() {
		log.Warn("Model reply unusable, storing fallback quiz",
			zap.String("reason", parsed.Reason),
			zap.String("reply_prefix", prefix(reply, 200)))
	}

	artifact, err := s.store.UpsertFromPipeline(ctx, url, domain.PipelineFields{
		Title:         content.Title,
		Summary:       content.Summary,
		Sections:      content.Sections,
		RawHTML:       s.snapshot(markup),
		ExtractedText: content.ExtractedText,
		Quiz:          parsed.Quiz.Quiz,
		RelatedTopics: parsed.Quiz.RelatedTopics,
	})
	if err != nil {
		log.Error("Failed to store quiz", zap.Error(err))
		return nil, err
	}

	log.Info("Quiz pipeline finished",
		zap.Int64("id", artifact.ID),
		zap.Int("questions", len(artifact.Quiz)),
		zap.Stringer("parse", parsed.Status),
		zap.Duration("elapsed", time.Since(start)))
	return &domain.GenerationResult{Artifact: artifact, Degraded: parsed.Degraded()}, nil
}

// snapshot applies the configured raw markup policy.
func (s *quizService) snapshot(markup string) string {
	switch s.rawMarkup {
	case config.RawMarkupOff:
		return ""
	case config.RawMarkupSanitized:
		return s.sanitizer.Sanitize(markup)
	default:
		return markup
	}
}

func (s *quizService) List(ctx context.Context, limit, offset int) ([]*domain.ArtifactSummary, error) {
	if limit <= 0 || offset < 0 {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("invalid page limit=%d offset=%d", limit, offset))
	}
	return s.store.List(ctx, limit, offset)
}

func (s *quizService) GetByID(ctx context.Context, id int64) (*domain.Artifact, error) {
	if id <= 0 {
		return nil, domain.NewArtifactNotFoundError(id)
	}
	return s.store.GetByID(ctx, id)
}

func (s *quizService) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// prefix returns at most n bytes of s without splitting a rune.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
