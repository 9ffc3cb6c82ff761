// Package fetcher retrieves article markup over HTTP.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"wiki-quiz/internal/config"
	"wiki-quiz/internal/domain"

	"go.uber.org/zap"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "DeepKlarityBot/1.0"
	defaultMaxBytes  = 10 * 1024 * 1024
)

// HTTPFetcher implements domain.ContentFetcher with a single GET per call and no retries.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *zap.Logger
}

// NewHTTPFetcher creates an HTTPFetcher; zero config values fall back to defaults.
func NewHTTPFetcher(cfg config.FetcherConfig, logger *zap.Logger) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		logger:    logger,
	}
}

// Fetch retrieves the markup behind url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", domain.NewFetchNetworkError(url, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			f.logger.Warn("Fetch timed out", zap.String("url", url), zap.Duration("elapsed", time.Since(start)))
			return "", domain.NewFetchTimeoutError(url, err)
		}
		f.logger.Warn("Fetch failed", zap.String("url", url), zap.Error(err))
		return "", domain.NewFetchNetworkError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Warn("Fetch returned non-success status", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return "", domain.NewFetchStatusError(url, resp.StatusCode)
	}

	// one byte past the cap tells an oversized page from one that fits exactly
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return "", domain.NewFetchTimeoutError(url, err)
		}
		return "", domain.NewFetchNetworkError(url, fmt.Errorf("reading response body: %w", err))
	}
	if int64(len(body)) > f.maxBytes {
		f.logger.Warn("Fetched body exceeds size cap", zap.String("url", url), zap.Int64("max_bytes", f.maxBytes))
		return "", domain.NewFetchTooLargeError(url, f.maxBytes)
	}

	f.logger.Debug("Fetched article",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return string(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var _ domain.ContentFetcher = (*HTTPFetcher)(nil)
