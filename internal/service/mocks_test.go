package service

import (
	"context"
	"sync"
	"time"

	"wiki-quiz/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockArtifactRepository ---
type MockArtifactRepository struct {
	mock.Mock
}

func (m *MockArtifactRepository) GetByURL(ctx context.Context, url string) (*domain.Artifact, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Artifact), args.Error(1)
}

func (m *MockArtifactRepository) GetByID(ctx context.Context, id int64) (*domain.Artifact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Artifact), args.Error(1)
}

func (m *MockArtifactRepository) Insert(ctx context.Context, artifact *domain.Artifact) error {
	args := m.Called(ctx, artifact)
	return args.Error(0)
}

func (m *MockArtifactRepository) Update(ctx context.Context, artifact *domain.Artifact) error {
	args := m.Called(ctx, artifact)
	return args.Error(0)
}

func (m *MockArtifactRepository) List(ctx context.Context, limit, offset int) ([]*domain.ArtifactSummary, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ArtifactSummary), args.Error(1)
}

func (m *MockArtifactRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MockContentFetcher ---
type MockContentFetcher struct {
	mock.Mock
}

func (m *MockContentFetcher) Fetch(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

// --- MockQuizGenerator ---
type MockQuizGenerator struct {
	mock.Mock
}

func (m *MockQuizGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// memoryRepository is an ArtifactRepository that enforces the unique url like the real tables do.
type memoryRepository struct {
	mu     sync.Mutex
	byURL  map[string]*domain.Artifact
	nextID int64
	// inserts counts attempted inserts, including losing ones.
	inserts int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{byURL: make(map[string]*domain.Artifact)}
}

func clone(a *domain.Artifact) *domain.Artifact {
	c := *a
	return &c
}

func (r *memoryRepository) GetByURL(_ context.Context, url string) (*domain.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byURL[url]; ok {
		return clone(a), nil
	}
	return nil, nil
}

func (r *memoryRepository) GetByID(_ context.Context, id int64) (*domain.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byURL {
		if a.ID == id {
			return clone(a), nil
		}
	}
	return nil, nil
}

func (r *memoryRepository) Insert(_ context.Context, artifact *domain.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserts++
	if _, ok := r.byURL[artifact.URL]; ok {
		return domain.ErrDuplicateKey
	}
	r.nextID++
	now := time.Now()
	artifact.ID = r.nextID
	artifact.CreatedAt = now
	artifact.UpdatedAt = now
	r.byURL[artifact.URL] = clone(artifact)
	return nil
}

func (r *memoryRepository) Update(_ context.Context, artifact *domain.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byURL[artifact.URL]
	if !ok || existing.ID != artifact.ID {
		return domain.NewArtifactNotFoundError(artifact.ID)
	}
	artifact.UpdatedAt = time.Now()
	r.byURL[artifact.URL] = clone(artifact)
	return nil
}

func (r *memoryRepository) List(_ context.Context, limit, offset int) ([]*domain.ArtifactSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ArtifactSummary, 0, len(r.byURL))
	for _, a := range r.byURL {
		out = append(out, &domain.ArtifactSummary{ID: a.ID, URL: a.URL, Title: a.Title, Summary: a.Summary, CreatedAt: a.CreatedAt})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID > out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if offset >= len(out) {
		return []*domain.ArtifactSummary{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) Ping(context.Context) error { return nil }

func (r *memoryRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byURL)
}
