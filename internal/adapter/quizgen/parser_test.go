package quizgen

import (
	"strings"
	"testing"
	"time"

	"wiki-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReply = `{
  "quiz": [
    {
      "question": "Where was Turing born?",
      "options": ["Maida Vale", "Paris", "Berlin", "Rome"],
      "answer": "Maida Vale",
      "explanation": "The Early life section says so.",
      "difficulty": "easy"
    }
  ],
  "related_topics": ["Enigma", "Bletchley Park", "Computability"]
}`

func TestParser_ValidJSON(t *testing.T) {
	res := NewParser(nil).Parse(validReply)

	assert.Equal(t, domain.ParseOK, res.Status)
	assert.False(t, res.Degraded())
	require.Len(t, res.Quiz.Quiz, 1)
	assert.Equal(t, "Maida Vale", res.Quiz.Quiz[0].Answer)
	assert.Equal(t, domain.DifficultyEasy, res.Quiz.Quiz[0].Difficulty)
	assert.Equal(t, []string{"Enigma", "Bletchley Park", "Computability"}, res.Quiz.RelatedTopics)
}

func TestParser_JSONWrappedInProse(t *testing.T) {
	text := "Sure! Here is your quiz:\n```json\n" + validReply + "\n```\nHope it helps {not json}."
	res := NewParser(nil).Parse(text)

	assert.Equal(t, domain.ParseOK, res.Status)
	require.Len(t, res.Quiz.Quiz, 1)
	assert.Equal(t, "Where was Turing born?", res.Quiz.Quiz[0].Question)
}

func TestParser_SkipsNonJSONBraceGroups(t *testing.T) {
	text := "Format {like this} then " + validReply
	res := NewParser(nil).Parse(text)

	assert.Equal(t, domain.ParseOK, res.Status)
	require.Len(t, res.Quiz.Quiz, 1)
}

func TestParser_ObjectInsideUnclosedBrace(t *testing.T) {
	text := "{ the model forgot to close this " + validReply
	res := NewParser(nil).Parse(text)

	assert.Equal(t, domain.ParseOK, res.Status)
	require.Len(t, res.Quiz.Quiz, 1)
}

func TestParser_QuotesInProseBeforeObject(t *testing.T) {
	text := `Here's the "quiz you asked for: ` + validReply
	res := NewParser(nil).Parse(text)

	assert.Equal(t, domain.ParseOK, res.Status)
	require.Len(t, res.Quiz.Quiz, 1)
}

func TestParser_LargeUnbalancedReplyIsLinear(t *testing.T) {
	inputs := map[string]string{
		"open braces":       strings.Repeat("{", 200000),
		"open quoted pairs": strings.Repeat(`{"a":`, 50000),
		"closed nesting":    strings.Repeat("{", 100000) + strings.Repeat("}", 100000),
	}
	for name, text := range inputs {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			res := NewParser(nil).Parse(text)

			assert.Equal(t, domain.ParseDegraded, res.Status)
			assert.Less(t, time.Since(start), 2*time.Second)
		})
	}
}

func TestBalancedSpans(t *testing.T) {
	spans := balancedSpans(`x {a {b} "c}" } {d`)
	assert.Equal(t, []span{{start: 2, end: 14}, {start: 5, end: 7}}, spans)
}

func TestParser_BracesInsideStrings(t *testing.T) {
	text := `{"quiz": [{"question": "What does } mean in {set} notation?", "options": ["a","b","c","d"], "answer": "a", "difficulty": "hard"}], "related_topics": []}`
	res := NewParser(nil).Parse(text)

	assert.Equal(t, domain.ParseOK, res.Status)
	require.Len(t, res.Quiz.Quiz, 1)
	assert.Equal(t, "What does } mean in {set} notation?", res.Quiz.Quiz[0].Question)
}

func TestParser_StripsThinkBlocks(t *testing.T) {
	text := "<think>I should output {\"quiz\": 1}</think>" + validReply
	res := NewParser(nil).Parse(text)

	assert.Equal(t, domain.ParseOK, res.Status)
	require.Len(t, res.Quiz.Quiz, 1)
}

func TestParser_MissingKeysBecomeEmpty(t *testing.T) {
	res := NewParser(nil).Parse(`{"quiz": null}`)

	assert.Equal(t, domain.ParseOK, res.Status)
	assert.NotNil(t, res.Quiz.Quiz)
	assert.Empty(t, res.Quiz.Quiz)
	assert.NotNil(t, res.Quiz.RelatedTopics)
	assert.Empty(t, res.Quiz.RelatedTopics)
}

func TestParser_KeepsItemsThatBreakContentRules(t *testing.T) {
	text := `{"quiz": [{"question": "Q?", "options": ["a","b"], "answer": "z", "difficulty": "extreme"}], "related_topics": ["x"]}`
	res := NewParser(nil).Parse(text)

	assert.Equal(t, domain.ParseOK, res.Status)
	require.Len(t, res.Quiz.Quiz, 1)
	assert.NotEmpty(t, res.Quiz.Quiz[0].Issues())
}

func TestParser_Fallback(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"prose only", "I cannot help with that."},
		{"truncated object", `{"quiz": [{"question": "Q"`},
		{"wrong type", `{"quiz": "none"}`},
		{"json null", "null"},
		{"json array", `[1, 2, 3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewParser(nil).Parse(tt.text)

			assert.Equal(t, domain.ParseDegraded, res.Status)
			assert.True(t, res.Degraded())
			assert.NotEmpty(t, res.Reason)
			assert.Equal(t, domain.FallbackQuiz(), res.Quiz)
		})
	}
}
