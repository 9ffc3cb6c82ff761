package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type stubService struct {
	generated service.GenerateRequest
	artifact  *domain.Artifact
	summaries []*domain.ArtifactSummary
	err       error
}

func (s *stubService) Generate(ctx context.Context, req service.GenerateRequest) (*domain.GenerationResult, error) {
	s.generated = req
	if s.err != nil {
		return nil, s.err
	}
	return &domain.GenerationResult{Artifact: s.artifact, Cached: true}, nil
}

func (s *stubService) List(ctx context.Context, limit, offset int) ([]*domain.ArtifactSummary, error) {
	return s.summaries, s.err
}

func (s *stubService) GetByID(ctx context.Context, id int64) (*domain.Artifact, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.artifact == nil || s.artifact.ID != id {
		return nil, domain.NewArtifactNotFoundError(id)
	}
	return s.artifact, nil
}

func (s *stubService) Health(ctx context.Context) error { return s.err }

func run(t *testing.T, svc *stubService, args ...string) (string, error) {
	t.Helper()
	released := false
	root := NewRootCommand(func(ctx context.Context) (service.QuizService, func() error, error) {
		return svc, func() error { released = true; return nil }, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		assert.True(t, released, "service must be released")
	}
	return out.String(), err
}

func sample() *domain.Artifact {
	ts := time.Date(2024, 3, 4, 5, 6, 0, 0, time.UTC)
	return &domain.Artifact{
		ID:    9,
		URL:   "https://en.wikipedia.org/wiki/Ada_Lovelace",
		Title: "Ada Lovelace",
		Quiz: []domain.QuizItem{{
			Question:   "What did Ada write notes on?",
			Options:    []string{"Analytical Engine", "Loom", "Telegraph", "Steam engine"},
			Answer:     "Analytical Engine",
			Difficulty: domain.DifficultyMedium,
		}},
		RelatedTopics: []string{"Charles Babbage"},
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

func TestGenerateCommand_JSON(t *testing.T) {
	svc := &stubService{artifact: sample()}

	out, err := run(t, svc, "generate", " https://en.wikipedia.org/wiki/Ada_Lovelace ", "--refresh", "-o", "json")
	require.NoError(t, err)

	assert.Equal(t, "https://en.wikipedia.org/wiki/Ada_Lovelace", svc.generated.URL)
	assert.True(t, svc.generated.Refresh)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Ada Lovelace", got["title"])
	assert.Equal(t, true, got["cached"])
}

func TestGenerateCommand_RejectsBadURL(t *testing.T) {
	_, err := run(t, &stubService{}, "generate", "not-a-url")
	require.Error(t, err)
	var verrs domain.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestShowCommand_Table(t *testing.T) {
	out, err := run(t, &stubService{artifact: sample()}, "show", "9")
	require.NoError(t, err)

	assert.Contains(t, out, "#9 Ada Lovelace")
	assert.Contains(t, out, "1. [medium] What did Ada write notes on?")
	assert.Contains(t, out, "* A) Analytical Engine")
	assert.Contains(t, out, "  B) Loom")
	assert.Contains(t, out, "Related: Charles Babbage")
}

func TestShowCommand_Errors(t *testing.T) {
	_, err := run(t, &stubService{artifact: sample()}, "show", "abc")
	assert.ErrorContains(t, err, "invalid id")

	_, err = run(t, &stubService{artifact: sample()}, "show", "10")
	assert.True(t, domain.IsNotFound(err))
}

func TestHistoryCommand_Table(t *testing.T) {
	ts := time.Date(2024, 3, 4, 5, 6, 0, 0, time.UTC)
	svc := &stubService{summaries: []*domain.ArtifactSummary{
		{ID: 2, URL: "https://ja.wikipedia.org/wiki/日本", Title: strings.Repeat("日本語", 20), CreatedAt: ts},
		{ID: 1, URL: "https://en.wikipedia.org/wiki/Go", Title: "Go", CreatedAt: ts},
	}}

	out, err := run(t, svc, "history", "--limit", "5")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "…")
	assert.Contains(t, lines[2], "2024-03-04 05:06")
}

func TestHistoryCommand_YAML(t *testing.T) {
	svc := &stubService{summaries: []*domain.ArtifactSummary{{ID: 1, URL: "https://example.com/a"}}}

	out, err := run(t, svc, "history", "-o", "yaml")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 20, got["limit"])
	items := got["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.com/a", items[0].(map[string]interface{})["url"])
}

func TestHistoryCommand_InvalidPage(t *testing.T) {
	_, err := run(t, &stubService{}, "history", "--limit", "0")
	assert.Error(t, err)
}

func TestRootCommand_UnknownOutput(t *testing.T) {
	_, err := run(t, &stubService{}, "history", "-o", "xml")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestCommand_ServiceError(t *testing.T) {
	_, err := run(t, &stubService{err: errors.New("db down")}, "history")
	assert.ErrorContains(t, err, "db down")
}

func TestExitCode(t *testing.T) {
	url := "https://en.wikipedia.org/wiki/Ada_Lovelace"

	_, err := run(t, &stubService{err: domain.NewFetchStatusError(url, 404)}, "generate", url)
	assert.Equal(t, ExitFetchFailed, ExitCode(err))

	_, err = run(t, &stubService{err: domain.NewGenerationError(domain.ReasonTimeout, context.DeadlineExceeded)}, "generate", url)
	assert.Equal(t, ExitGenerationFailed, ExitCode(err))

	_, err = run(t, &stubService{artifact: sample()}, "show", "10")
	assert.Equal(t, ExitNotFound, ExitCode(err))

	_, err = run(t, &stubService{err: errors.New("db down")}, "history")
	assert.Equal(t, ExitFailure, ExitCode(err))

	assert.Zero(t, ExitCode(nil))
}

func TestBatchCommand_FromStdin(t *testing.T) {
	svc := &stubService{artifact: sample()}
	root := NewRootCommand(func(ctx context.Context) (service.QuizService, func() error, error) {
		return svc, nil, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("# wiki pages\nhttps://en.wikipedia.org/wiki/Ada_Lovelace\n\n"))
	root.SetArgs([]string{"batch", "--file", "-", "https://en.wikipedia.org/wiki/Go", "--concurrency", "1"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "cached")
	assert.Contains(t, out.String(), "2 succeeded, 0 failed")
}

func TestBatchCommand_ReportsFailures(t *testing.T) {
	out, err := run(t, &stubService{err: errors.New("quota")}, "batch", "https://example.com/a", "-o", "json")
	assert.ErrorContains(t, err, "1 of 1 URLs failed")

	var report service.BatchReport
	require.NoError(t, json.Unmarshal([]byte(out[:strings.LastIndex(out, "}")+1]), &report))
	require.Len(t, report.Items, 1)
	assert.Equal(t, "quota", report.Items[0].Error)
}

func TestBatchCommand_NoURLs(t *testing.T) {
	_, err := run(t, &stubService{}, "batch")
	assert.ErrorContains(t, err, "no URLs given")
}
