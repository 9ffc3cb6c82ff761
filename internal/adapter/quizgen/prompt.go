package quizgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"wiki-quiz/internal/config"
	"wiki-quiz/internal/domain"
)

const (
	DefaultQuestionCount   = 7
	DefaultMaxContextChars = 120000
)

const quizPromptTemplate = `
You are a helpful, precise quiz-generator assistant.
Given the following extracted Wikipedia article text and its metadata, produce a quiz with %d multiple-choice questions.

Article title: %s
Article summary: %s
Sections: %s

Article text (relevant paragraphs):
%s

Requirements:
- Output JSON only.
- Provide a single top-level object with keys: "quiz" (list), "related_topics" (list).
- Each quiz item must have:
  - "question": short question text (no more than 120 chars)
  - "options": list of 4 plausible options (A-D)
  - "answer": exact option text (must match one option verbatim)
  - "explanation": 1-2 sentence explanation grounded in the article text (cite section where possible)
  - "difficulty": one of ["easy","medium","hard"]
- Make questions fact-based and grounded in the provided content (minimize hallucination).
- Mix question difficulties: ~40%% easy, ~40%% medium, ~20%% hard.
- Under "related_topics" return 3-6 relevant Wikipedia topics (short phrases).

Return only valid JSON that can be parsed by a JSON parser.
`

// PromptBuilder renders the quiz generation prompt. It is pure and safe for concurrent use.
type PromptBuilder struct {
	questionCount   int
	maxContextChars int
}

func NewPromptBuilder(cfg config.QuizConfig) *PromptBuilder {
	b := &PromptBuilder{
		questionCount:   cfg.QuestionCount,
		maxContextChars: cfg.MaxContextChars,
	}
	if b.questionCount <= 0 {
		b.questionCount = DefaultQuestionCount
	}
	if b.maxContextChars <= 0 {
		b.maxContextChars = DefaultMaxContextChars
	}
	return b
}

// Build renders the prompt for content. n <= 0 uses the configured question count.
func (b *PromptBuilder) Build(content *domain.ExtractedContent, n int) string {
	if n <= 0 {
		n = b.questionCount
	}
	if content == nil {
		content = &domain.ExtractedContent{}
	}
	return fmt.Sprintf(quizPromptTemplate,
		n,
		content.Title,
		content.Summary,
		formatSections(content.Sections),
		truncateRunes(content.ExtractedText, b.maxContextChars),
	)
}

// formatSections renders headings as a JSON array so each one appears verbatim.
func formatSections(sections []string) string {
	if sections == nil {
		sections = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sections); err != nil {
		return "[]"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
