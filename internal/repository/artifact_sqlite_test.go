package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"wiki-quiz/internal/config"
	"wiki-quiz/internal/database"
	"wiki-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSQLiteAdapter(t *testing.T) *ArtifactDatabaseAdapter {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DBConfig{Driver: database.DriverSQLite}, filepath.Join(t.TempDir(), "quiz.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(ctx, db, database.DriverSQLite, zap.NewNop()))

	adapter, err := NewArtifactDatabaseAdapter(db, database.DriverSQLite)
	require.NoError(t, err)
	return adapter
}

func TestSQLite_InsertGetUpdate(t *testing.T) {
	adapter := newSQLiteAdapter(t)
	ctx := context.Background()

	a := sampleArtifact()
	require.NoError(t, adapter.Insert(ctx, a))
	require.NotZero(t, a.ID)

	byURL, err := adapter.GetByURL(ctx, a.URL)
	require.NoError(t, err)
	require.NotNil(t, byURL)
	assert.Equal(t, a.ID, byURL.ID)
	assert.Equal(t, a.Quiz, byURL.Quiz)
	assert.Equal(t, a.Sections, byURL.Sections)
	assert.Equal(t, a.RelatedTopics, byURL.RelatedTopics)
	assert.Empty(t, byURL.RawHTML)

	byURL.Apply(domain.PipelineFields{Title: "Alan Turing (revised)", RelatedTopics: []string{"Turing test"}})
	require.NoError(t, adapter.Update(ctx, byURL))

	byID, err := adapter.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Alan Turing (revised)", byID.Title)
	assert.Empty(t, byID.Summary)
	assert.Equal(t, []domain.QuizItem{}, byID.Quiz)
	assert.Equal(t, []string{"Turing test"}, byID.RelatedTopics)
	assert.Equal(t, a.URL, byID.URL)

	missing, err := adapter.GetByID(ctx, a.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_DuplicateInsert(t *testing.T) {
	adapter := newSQLiteAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Insert(ctx, sampleArtifact()))
	err := adapter.Insert(ctx, sampleArtifact())
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
}

func TestSQLite_ConcurrentInsertsKeepOneRow(t *testing.T) {
	adapter := newSQLiteAdapter(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = adapter.Insert(ctx, sampleArtifact())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	}
	assert.Equal(t, 1, succeeded)

	list, err := adapter.List(ctx, 50, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLite_ListNewestFirst(t *testing.T) {
	adapter := newSQLiteAdapter(t)
	ctx := context.Background()

	urls := []string{
		"https://en.wikipedia.org/wiki/A",
		"https://en.wikipedia.org/wiki/B",
		"https://en.wikipedia.org/wiki/C",
	}
	for _, u := range urls {
		require.NoError(t, adapter.Insert(ctx, domain.NewArtifact(u, domain.PipelineFields{Title: u[len(u)-1:]})))
	}

	list, err := adapter.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "C", list[0].Title)
	assert.Equal(t, "B", list[1].Title)
	assert.Equal(t, "A", list[2].Title)

	page, err := adapter.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "B", page[0].Title)

	require.NoError(t, adapter.Ping(ctx))
}
