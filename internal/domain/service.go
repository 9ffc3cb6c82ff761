package domain

import "context"

// ArtifactRepository is the storage collaborator of the artifact store.
type ArtifactRepository interface {
	// GetByURL returns the artifact for a reference URL, or nil when absent.
	GetByURL(ctx context.Context, url string) (*Artifact, error)

	// GetByID returns the artifact with the given id, or nil when absent.
	GetByID(ctx context.Context, id int64) (*Artifact, error)

	// Insert persists a new artifact and fills in ID, CreatedAt and UpdatedAt.
	// It returns ErrDuplicateKey when another artifact already owns the URL.
	Insert(ctx context.Context, artifact *Artifact) error

	// Update overwrites the derived and generated fields of an existing artifact in place.
	Update(ctx context.Context, artifact *Artifact) error

	// List returns artifact summaries, newest first.
	List(ctx context.Context, limit, offset int) ([]*ArtifactSummary, error)

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
}

// ContentFetcher retrieves raw article markup.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// TextExtractor turns article markup into structured text. It never fails.
type TextExtractor interface {
	Extract(markup string) *ExtractedContent
}

// QuizGenerator sends a rendered prompt to the generation backend and returns its reply as text.
type QuizGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptBuilder renders the generation prompt for extracted content. n <= 0 means the configured default.
type PromptBuilder interface {
	Build(content *ExtractedContent, n int) string
}

// ReplyParser recovers a quiz from model text. It never fails; unusable text yields a degraded result.
type ReplyParser interface {
	Parse(reply string) ParseResult
}
