package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchConcurrency = 4

// BatchItem is the outcome for one URL of a batch run.
type BatchItem struct {
	URL      string `json:"url" yaml:"url"`
	ID       int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Cached   bool   `json:"cached" yaml:"cached"`
	Degraded bool   `json:"degraded" yaml:"degraded"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchReport lists batch outcomes in input order.
type BatchReport struct {
	Items     []BatchItem `json:"items" yaml:"items"`
	Succeeded int         `json:"succeeded" yaml:"succeeded"`
	Failed    int         `json:"failed" yaml:"failed"`
}

// BatchService generates quizzes for many URLs.
type BatchService interface {
	GenerateAll(ctx context.Context, urls []string, refresh bool) *BatchReport
}

type batchService struct {
	quizService QuizService
	concurrency int
	logger      *zap.Logger
}

// NewBatchService creates a batch runner over quizService. concurrency <= 0 uses a default.
func NewBatchService(quizService QuizService, concurrency int, logger *zap.Logger) BatchService {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &batchService{quizService: quizService, concurrency: concurrency, logger: logger}
}

// GenerateAll runs Generate for each URL. A failing URL is recorded and the batch continues.
// Duplicate URLs are resolved by the quiz service like any concurrent requests.
func (s *batchService) GenerateAll(ctx context.Context, urls []string, refresh bool) *BatchReport {
	start := time.Now()
	s.logger.Info("Starting batch quiz generation", zap.Int("urls", len(urls)), zap.Int("concurrency", s.concurrency))

	report := &BatchReport{Items: make([]BatchItem, len(urls))}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, url := range urls {
		g.Go(func() error {
			item := BatchItem{URL: url}
			result, err := s.quizService.Generate(ctx, GenerateRequest{URL: url, Refresh: refresh})
			if err != nil {
				s.logger.Error("Failed to generate quiz in batch", zap.String("url", url), zap.Error(err))
				item.Error = err.Error()
			} else {
				item.ID = result.Artifact.ID
				item.Cached = result.Cached
				item.Degraded = result.Degraded
			}

			mu.Lock()
			report.Items[i] = item
			if err != nil {
				report.Failed++
			} else {
				report.Succeeded++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Batch quiz generation completed",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", time.Since(start)))
	return report
}
