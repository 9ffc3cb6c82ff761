package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/util"
)

// StringSlice stores a string list as a JSON array in a text column.
type StringSlice []string

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	jsonData, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

// Scan implements the sql.Scanner interface. NULL, "" and "null" scan as an empty slice.
func (s *StringSlice) Scan(value interface{}) error {
	b, err := columnBytes(value, "StringSlice")
	if err != nil {
		return err
	}
	if b == nil {
		*s = StringSlice{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("StringSlice Scan: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*s = out
	return nil
}

// QuizItems stores the quiz item list as a JSON array in a text column.
type QuizItems []domain.QuizItem

func (q QuizItems) Value() (driver.Value, error) {
	if q == nil {
		return "[]", nil
	}
	jsonData, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

func (q *QuizItems) Scan(value interface{}) error {
	b, err := columnBytes(value, "QuizItems")
	if err != nil {
		return err
	}
	if b == nil {
		*q = QuizItems{}
		return nil
	}
	var out []domain.QuizItem
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("QuizItems Scan: %w", err)
	}
	if out == nil {
		out = []domain.QuizItem{}
	}
	*q = out
	return nil
}

// columnBytes returns nil for NULL, empty and "null" column values.
func columnBytes(value interface{}, typeName string) ([]byte, error) {
	var b []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return nil, errors.New(typeName + " Scan: unsupported type " + fmt.Sprintf("%T", value))
	}
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

// QuizEntry is the quiz_entries row.
type QuizEntry struct {
	ID            int64          `db:"id"`
	URL           string         `db:"url"`
	Title         sql.NullString `db:"title"`
	Summary       sql.NullString `db:"summary"`
	Sections      StringSlice    `db:"sections"`
	RawHTML       sql.NullString `db:"raw_html"`
	ExtractedText sql.NullString `db:"extracted_text"`
	Quiz          QuizItems      `db:"quiz"`
	RelatedTopics StringSlice    `db:"related_topics"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (QuizEntry) TableName() string {
	return "quiz_entries"
}

// QuizEntrySummary is the projection read by history listings.
type QuizEntrySummary struct {
	ID        int64          `db:"id"`
	URL       string         `db:"url"`
	Title     sql.NullString `db:"title"`
	Summary   sql.NullString `db:"summary"`
	CreatedAt time.Time      `db:"created_at"`
}

// FromArtifact converts a domain artifact into a row.
func FromArtifact(a *domain.Artifact) *QuizEntry {
	if a == nil {
		return nil
	}
	return &QuizEntry{
		ID:            a.ID,
		URL:           a.URL,
		Title:         util.StringToNullString(a.Title),
		Summary:       util.StringToNullString(a.Summary),
		Sections:      StringSlice(a.Sections),
		RawHTML:       util.StringToNullString(a.RawHTML),
		ExtractedText: util.StringToNullString(a.ExtractedText),
		Quiz:          QuizItems(a.Quiz),
		RelatedTopics: StringSlice(a.RelatedTopics),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// ToArtifact converts a row into a domain artifact. List fields are never nil.
func (e *QuizEntry) ToArtifact() *domain.Artifact {
	if e == nil {
		return nil
	}
	a := &domain.Artifact{
		ID:            e.ID,
		URL:           e.URL,
		Title:         e.Title.String,
		Summary:       e.Summary.String,
		Sections:      []string(e.Sections),
		RawHTML:       e.RawHTML.String,
		ExtractedText: e.ExtractedText.String,
		Quiz:          []domain.QuizItem(e.Quiz),
		RelatedTopics: []string(e.RelatedTopics),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if a.Sections == nil {
		a.Sections = []string{}
	}
	if a.Quiz == nil {
		a.Quiz = []domain.QuizItem{}
	}
	if a.RelatedTopics == nil {
		a.RelatedTopics = []string{}
	}
	return a
}

func (s *QuizEntrySummary) ToSummary() *domain.ArtifactSummary {
	return &domain.ArtifactSummary{
		ID:        s.ID,
		URL:       s.URL,
		Title:     s.Title.String,
		Summary:   s.Summary.String,
		CreatedAt: s.CreatedAt,
	}
}
