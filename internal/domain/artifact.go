package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Difficulty is the difficulty tag a model attaches to a quiz item.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of easy, medium or hard.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

const (
	// MaxQuestionLength is advisory; longer questions are flagged, not rejected.
	MaxQuestionLength = 120
	OptionsPerItem    = 4
)

// QuizItem is one multiple-choice question.
type QuizItem struct {
	Question    string     `json:"question"`
	Options     []string   `json:"options"`
	Answer      string     `json:"answer"`
	Explanation string     `json:"explanation,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
}

// Issues lists the soft-invariant violations of the item. An empty result means the item is well formed.
func (q QuizItem) Issues() []string {
	var issues []string
	if strings.TrimSpace(q.Question) == "" {
		issues = append(issues, "question is empty")
	} else if n := utf8.RuneCountInString(q.Question); n > MaxQuestionLength {
		issues = append(issues, fmt.Sprintf("question has %d characters, limit is %d", n, MaxQuestionLength))
	}
	if len(q.Options) != OptionsPerItem {
		issues = append(issues, fmt.Sprintf("expected %d options, got %d", OptionsPerItem, len(q.Options)))
	}
	if !q.answerInOptions() {
		issues = append(issues, "answer does not match any option")
	}
	if !q.Difficulty.Valid() {
		issues = append(issues, fmt.Sprintf("unknown difficulty %q", q.Difficulty))
	}
	return issues
}

func (q QuizItem) answerInOptions() bool {
	for _, opt := range q.Options {
		if opt == q.Answer {
			return true
		}
	}
	return false
}

// GeneratedQuiz is the model-produced part of an artifact.
type GeneratedQuiz struct {
	Quiz          []QuizItem `json:"quiz"`
	RelatedTopics []string   `json:"related_topics"`
}

const (
	FallbackQuestion    = "Failed to parse model output. Here's a fallback question."
	FallbackExplanation = "Model output couldn't be parsed as JSON."
)

// FallbackQuiz is the single-question quiz stored when a model reply cannot be parsed.
func FallbackQuiz() GeneratedQuiz {
	return GeneratedQuiz{
		Quiz: []QuizItem{{
			Question:    FallbackQuestion,
			Options:     []string{"A", "B", "C", "D"},
			Answer:      "A",
			Explanation: FallbackExplanation,
			Difficulty:  DifficultyMedium,
		}},
		RelatedTopics: []string{},
	}
}

// ExtractedContent is what the text extractor derives from article markup.
// Empty Title or Summary means the element was absent.
type ExtractedContent struct {
	Title         string
	Summary       string
	Sections      []string
	ExtractedText string
}

// PipelineFields carries one completed pipeline run into the store.
type PipelineFields struct {
	Title         string
	Summary       string
	Sections      []string
	RawHTML       string
	ExtractedText string
	Quiz          []QuizItem
	RelatedTopics []string
}

// Artifact is the persisted quiz for one reference URL.
type Artifact struct {
	ID            int64
	URL           string
	Title         string
	Summary       string
	Sections      []string
	RawHTML       string
	ExtractedText string
	Quiz          []QuizItem
	RelatedTopics []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewArtifact builds an unsaved artifact from pipeline output.
func NewArtifact(url string, fields PipelineFields) *Artifact {
	a := &Artifact{URL: url}
	a.Apply(fields)
	return a
}

// Apply overwrites the derived and generated fields, keeping identity and timestamps.
func (a *Artifact) Apply(fields PipelineFields) {
	a.Title = fields.Title
	a.Summary = fields.Summary
	a.Sections = nonNil(fields.Sections)
	a.RawHTML = fields.RawHTML
	a.ExtractedText = fields.ExtractedText
	a.Quiz = fields.Quiz
	if a.Quiz == nil {
		a.Quiz = []QuizItem{}
	}
	a.RelatedTopics = nonNil(fields.RelatedTopics)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Degraded reports whether the stored quiz is the parse fallback.
func (a *Artifact) Degraded() bool {
	return len(a.Quiz) == 1 && a.Quiz[0].Question == FallbackQuestion && a.Quiz[0].Explanation == FallbackExplanation
}

// ArtifactSummary is the history listing view of an artifact.
type ArtifactSummary struct {
	ID        int64
	URL       string
	Title     string
	Summary   string
	CreatedAt time.Time
}

// ParseStatus distinguishes a clean parse from the fallback quiz.
type ParseStatus int

const (
	ParseOK ParseStatus = iota
	ParseDegraded
)

func (s ParseStatus) String() string {
	if s == ParseDegraded {
		return "degraded"
	}
	return "ok"
}

// ParseResult is the outcome of parsing a model reply. Both statuses are successful.
type ParseResult struct {
	Status ParseStatus
	Quiz   GeneratedQuiz
	// Reason explains a degraded result.
	Reason string
}

// Degraded reports whether the result is the fallback quiz.
func (r ParseResult) Degraded() bool {
	return r.Status == ParseDegraded
}

// GenerationResult is what a generate request returns to the caller.
type GenerationResult struct {
	Artifact *Artifact
	// Cached is true when the artifact was served without running the pipeline.
	Cached bool
	// Degraded is true when this run produced the fallback quiz.
	Degraded bool
}
