package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/repository/models"

	"github.com/jmoiron/sqlx"
)

const artifactColumns = `
		id "id",
		url "url",
		title "title",
		summary "summary",
		sections "sections",
		raw_html "raw_html",
		extracted_text "extracted_text",
		quiz "quiz",
		related_topics "related_topics",
		created_at "created_at",
		updated_at "updated_at"`

const insertColumns = `url, title, summary, sections, raw_html, extracted_text,
		quiz, related_topics, created_at, updated_at`

type artifactQueries struct {
	getByURL string
	getByID  string
	insert   string
	update   string
	list     string
}

// ArtifactDatabaseAdapter implements domain.ArtifactRepository using sqlx.DB.
// The url column's unique constraint is what arbitrates concurrent inserts.
type ArtifactDatabaseAdapter struct {
	db      *sqlx.DB
	dialect Dialect
	q       artifactQueries
}

// NewArtifactDatabaseAdapter builds the adapter for the given driver name.
func NewArtifactDatabaseAdapter(db *sqlx.DB, driver string) (*ArtifactDatabaseAdapter, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	a := &ArtifactDatabaseAdapter{db: db, dialect: dialect}
	a.q = a.buildQueries()
	return a, nil
}

func (a *ArtifactDatabaseAdapter) buildQueries() artifactQueries {
	q := artifactQueries{
		getByURL: `SELECT` + artifactColumns + `
	FROM quiz_entries
	WHERE url = ?`,
		getByID: `SELECT` + artifactColumns + `
	FROM quiz_entries
	WHERE id = ?`,
		update: `UPDATE quiz_entries SET
		title = ?, summary = ?, sections = ?, raw_html = ?, extracted_text = ?,
		quiz = ?, related_topics = ?, updated_at = ?
	WHERE id = ?`,
	}

	switch a.dialect {
	case DialectOracle:
		q.insert = `INSERT INTO quiz_entries (` + insertColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id INTO ?`
		q.list = `SELECT id "id", url "url", title "title", summary "summary", created_at "created_at"
	FROM quiz_entries
	ORDER BY created_at DESC, id DESC
	OFFSET ? ROWS FETCH NEXT ? ROWS ONLY`
	default:
		q.insert = `INSERT INTO quiz_entries (` + insertColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (url) DO NOTHING
	RETURNING id`
		q.list = `SELECT id "id", url "url", title "title", summary "summary", created_at "created_at"
	FROM quiz_entries
	ORDER BY created_at DESC, id DESC
	LIMIT ? OFFSET ?`
	}

	q.getByURL = a.db.Rebind(q.getByURL)
	q.getByID = a.db.Rebind(q.getByID)
	q.insert = a.db.Rebind(q.insert)
	q.update = a.db.Rebind(q.update)
	q.list = a.db.Rebind(q.list)
	return q
}

// GetByURL implements domain.ArtifactRepository
func (a *ArtifactDatabaseAdapter) GetByURL(ctx context.Context, url string) (*domain.Artifact, error) {
	var row models.QuizEntry
	if err := a.db.GetContext(ctx, &row, a.q.getByURL, url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz entry by url %s: %w", url, err)
	}
	return row.ToArtifact(), nil
}

// GetByID implements domain.ArtifactRepository
func (a *ArtifactDatabaseAdapter) GetByID(ctx context.Context, id int64) (*domain.Artifact, error) {
	var row models.QuizEntry
	if err := a.db.GetContext(ctx, &row, a.q.getByID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz entry by ID %d: %w", id, err)
	}
	return row.ToArtifact(), nil
}

// Insert implements domain.ArtifactRepository. A URL that already exists yields domain.ErrDuplicateKey.
func (a *ArtifactDatabaseAdapter) Insert(ctx context.Context, artifact *domain.Artifact) error {
	if artifact == nil {
		return fmt.Errorf("cannot insert nil artifact")
	}
	now := time.Now().UTC()
	row := models.FromArtifact(artifact)
	row.CreatedAt = now
	row.UpdatedAt = now

	args := []interface{}{
		row.URL, row.Title, row.Summary, row.Sections, row.RawHTML, row.ExtractedText,
		row.Quiz, row.RelatedTopics, row.CreatedAt, row.UpdatedAt,
	}

	var id int64
	var err error
	if a.dialect == DialectOracle {
		_, err = a.db.ExecContext(ctx, a.q.insert, append(args, sql.Out{Dest: &id})...)
	} else {
		err = a.db.QueryRowxContext(ctx, a.q.insert, args...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrDuplicateKey
		}
	}
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert quiz entry for %s: %w", artifact.URL, err)
	}

	artifact.ID = id
	artifact.CreatedAt = now
	artifact.UpdatedAt = now
	return nil
}

// Update implements domain.ArtifactRepository
func (a *ArtifactDatabaseAdapter) Update(ctx context.Context, artifact *domain.Artifact) error {
	if artifact == nil {
		return fmt.Errorf("cannot update nil artifact")
	}
	now := time.Now().UTC()
	row := models.FromArtifact(artifact)

	result, err := a.db.ExecContext(ctx, a.q.update,
		row.Title, row.Summary, row.Sections, row.RawHTML, row.ExtractedText,
		row.Quiz, row.RelatedTopics, now,
		row.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update quiz entry %d: %w", artifact.ID, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.NewArtifactNotFoundError(artifact.ID)
	}
	artifact.UpdatedAt = now
	return nil
}

// List implements domain.ArtifactRepository. Ties on created_at are broken by id, newest first.
func (a *ArtifactDatabaseAdapter) List(ctx context.Context, limit, offset int) ([]*domain.ArtifactSummary, error) {
	var args []interface{}
	if a.dialect == DialectOracle {
		args = []interface{}{offset, limit}
	} else {
		args = []interface{}{limit, offset}
	}

	var rows []models.QuizEntrySummary
	if err := a.db.SelectContext(ctx, &rows, a.q.list, args...); err != nil {
		return nil, fmt.Errorf("failed to list quiz entries: %w", err)
	}

	summaries := make([]*domain.ArtifactSummary, 0, len(rows))
	for i := range rows {
		summaries = append(summaries, rows[i].ToSummary())
	}
	return summaries, nil
}

// Ping implements domain.ArtifactRepository
func (a *ArtifactDatabaseAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

var _ domain.ArtifactRepository = (*ArtifactDatabaseAdapter)(nil)
