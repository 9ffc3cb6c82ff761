package dto

import (
	"time"

	"wiki-quiz/internal/domain"
)

// GenerateRequest is the body of POST /api/generate
// @Description Request body for generating a quiz from an article URL
type GenerateRequest struct {
	URL     string `json:"url" yaml:"url" example:"https://en.wikipedia.org/wiki/Alan_Turing"`
	Refresh bool   `json:"refresh,omitempty" yaml:"refresh,omitempty"`
}

// KeyEntities is a placeholder; entity extraction is not performed.
type KeyEntities struct {
	People        []string `json:"people" yaml:"people"`
	Organizations []string `json:"organizations" yaml:"organizations"`
	Locations     []string `json:"locations" yaml:"locations"`
}

func emptyKeyEntities() KeyEntities {
	return KeyEntities{People: []string{}, Organizations: []string{}, Locations: []string{}}
}

// QuizItemResponse is one multiple-choice question
type QuizItemResponse struct {
	Question    string   `json:"question" yaml:"question"`
	Options     []string `json:"options" yaml:"options"`
	Answer      string   `json:"answer" yaml:"answer"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Difficulty  string   `json:"difficulty" yaml:"difficulty"`
}

// QuizResponse represents a stored quiz in the API response
// @Description Quiz generated for one article
type QuizResponse struct {
	ID            int64              `json:"id" yaml:"id"`
	URL           string             `json:"url" yaml:"url"`
	Title         *string            `json:"title" yaml:"title"`
	Summary       *string            `json:"summary" yaml:"summary"`
	KeyEntities   KeyEntities        `json:"key_entities" yaml:"key_entities"`
	Sections      []string           `json:"sections" yaml:"sections"`
	Quiz          []QuizItemResponse `json:"quiz" yaml:"quiz"`
	RelatedTopics []string           `json:"related_topics" yaml:"related_topics"`
	CreatedAt     time.Time          `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" yaml:"updated_at"`
	Cached        bool               `json:"cached" yaml:"cached"`
	Degraded      bool               `json:"degraded" yaml:"degraded"`
}

// HistoryItem is one entry of GET /api/history
type HistoryItem struct {
	ID        int64     `json:"id" yaml:"id"`
	URL       string    `json:"url" yaml:"url"`
	Title     *string   `json:"title" yaml:"title"`
	Summary   *string   `json:"summary" yaml:"summary"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// HistoryResponse wraps a page of history items
type HistoryResponse struct {
	Items  []HistoryItem `json:"items" yaml:"items"`
	Limit  int           `json:"limit" yaml:"limit"`
	Offset int           `json:"offset" yaml:"offset"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status" yaml:"status"`
}

// optional maps an absent title or summary to JSON null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewQuizResponse converts a stored artifact into its API shape.
func NewQuizResponse(a *domain.Artifact, cached, degraded bool) QuizResponse {
	items := make([]QuizItemResponse, 0, len(a.Quiz))
	for _, q := range a.Quiz {
		options := q.Options
		if options == nil {
			options = []string{}
		}
		items = append(items, QuizItemResponse{
			Question:    q.Question,
			Options:     options,
			Answer:      q.Answer,
			Explanation: q.Explanation,
			Difficulty:  string(q.Difficulty),
		})
	}
	sections := a.Sections
	if sections == nil {
		sections = []string{}
	}
	topics := a.RelatedTopics
	if topics == nil {
		topics = []string{}
	}
	return QuizResponse{
		ID:            a.ID,
		URL:           a.URL,
		Title:         optional(a.Title),
		Summary:       optional(a.Summary),
		KeyEntities:   emptyKeyEntities(),
		Sections:      sections,
		Quiz:          items,
		RelatedTopics: topics,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
		Cached:        cached,
		Degraded:      degraded,
	}
}

// NewHistoryResponse converts summaries into the history page shape.
func NewHistoryResponse(summaries []*domain.ArtifactSummary, limit, offset int) HistoryResponse {
	items := make([]HistoryItem, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, HistoryItem{
			ID:        s.ID,
			URL:       s.URL,
			Title:     optional(s.Title),
			Summary:   optional(s.Summary),
			CreatedAt: s.CreatedAt,
		})
	}
	return HistoryResponse{Items: items, Limit: limit, Offset: offset}
}
