package quizgen

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"

	"wiki-quiz/internal/domain"

	"go.uber.org/zap"
)

var errNotObject = errors.New("model output does not contain a JSON object")

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Parser recovers a GeneratedQuiz from free-form model text.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse never fails. Unparseable text yields the fallback quiz with ParseDegraded status.
func (p *Parser) Parse(text string) domain.ParseResult {
	cleaned := strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))

	raw, ok := firstJSONObject(cleaned)
	if !ok {
		raw = cleaned
	}

	var quiz domain.GeneratedQuiz
	if err := decodeQuiz(raw, &quiz); err != nil {
		p.logger.Warn("Model output is not valid quiz JSON, using fallback",
			zap.Error(err), zap.Int("reply_chars", len(text)))
		return domain.ParseResult{
			Status: domain.ParseDegraded,
			Quiz:   domain.FallbackQuiz(),
			Reason: err.Error(),
		}
	}

	if quiz.Quiz == nil {
		quiz.Quiz = []domain.QuizItem{}
	}
	if quiz.RelatedTopics == nil {
		quiz.RelatedTopics = []string{}
	}
	for i, item := range quiz.Quiz {
		if issues := item.Issues(); len(issues) > 0 {
			p.logger.Warn("Quiz item does not meet content rules",
				zap.Int("index", i), zap.Strings("issues", issues))
		}
	}
	return domain.ParseResult{Status: domain.ParseOK, Quiz: quiz}
}

func decodeQuiz(raw string, quiz *domain.GeneratedQuiz) error {
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return errNotObject
	}
	return json.Unmarshal([]byte(raw), quiz)
}

// maxObjectCandidates bounds how many balanced spans are decoded per reply.
const maxObjectCandidates = 64

// firstJSONObject returns the earliest brace-balanced span that decodes as a JSON object.
func firstJSONObject(s string) (string, bool) {
	spans := balancedSpans(s)
	if len(spans) > maxObjectCandidates {
		spans = spans[:maxObjectCandidates]
	}
	for _, sp := range spans {
		candidate := s[sp.start : sp.end+1]
		var obj map[string]json.RawMessage
		if json.Unmarshal([]byte(candidate), &obj) == nil {
			return candidate, true
		}
	}
	return "", false
}

type span struct {
	start, end int
}

// balancedSpans finds every balanced {...} span in one pass, ordered by start offset.
// Quotes only open string literals inside braces, so prose apostrophes and quotes
// between objects do not hide the braces that follow them.
func balancedSpans(s string) []span {
	var spans []span
	var open []int
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = len(open) > 0
		case '{':
			open = append(open, i)
		case '}':
			if len(open) > 0 {
				spans = append(spans, span{start: open[len(open)-1], end: i})
				open = open[:len(open)-1]
			}
		}
	}
	sort.Slice(spans, func(a, b int) bool { return spans[a].start < spans[b].start })
	return spans
}
