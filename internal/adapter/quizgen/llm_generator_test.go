package quizgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"wiki-quiz/internal/config"
	"wiki-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

type fakeModel struct {
	resp        *llms.ContentResponse
	err         error
	delay       time.Duration
	gotMessages []llms.MessageContent
	gotOptions  llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.gotMessages = messages
	for _, opt := range options {
		opt(&m.gotOptions)
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.resp, m.err
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func textResponse(parts ...string) *llms.ContentResponse {
	resp := &llms.ContentResponse{}
	for _, p := range parts {
		resp.Choices = append(resp.Choices, &llms.ContentChoice{Content: p})
	}
	return resp
}

func newTestGenerator(t *testing.T, model llms.Model, cfg config.LLMConfig) *LLMQuizGenerator {
	t.Helper()
	g, err := NewLLMQuizGenerator(model, cfg, zap.NewNop())
	require.NoError(t, err)
	return g
}

func TestNewLLMQuizGenerator_NilModel(t *testing.T) {
	_, err := NewLLMQuizGenerator(nil, config.LLMConfig{}, nil)
	assert.Error(t, err)
}

func TestLLMQuizGenerator_PlainText(t *testing.T) {
	model := &fakeModel{resp: textResponse(`{"quiz": []}`)}
	g := newTestGenerator(t, model, config.LLMConfig{Temperature: 0.2})

	text, err := g.Generate(context.Background(), "make a quiz")

	require.NoError(t, err)
	assert.Equal(t, `{"quiz": []}`, text)
	require.Len(t, model.gotMessages, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.gotMessages[0].Role)
	require.Len(t, model.gotMessages[0].Parts, 1)
	assert.Equal(t, llms.TextContent{Text: "make a quiz"}, model.gotMessages[0].Parts[0])
	assert.InDelta(t, 0.2, model.gotOptions.Temperature, 1e-9)
}

func TestLLMQuizGenerator_FragmentsAreJoined(t *testing.T) {
	model := &fakeModel{resp: textResponse(`{"quiz":`, `[]}`)}
	g := newTestGenerator(t, model, config.LLMConfig{})

	text, err := g.Generate(context.Background(), "p")

	require.NoError(t, err)
	assert.Equal(t, `{"quiz": []}`, text)
}

func TestLLMQuizGenerator_BackendError(t *testing.T) {
	model := &fakeModel{err: errors.New("quota exceeded")}
	g := newTestGenerator(t, model, config.LLMConfig{})

	_, err := g.Generate(context.Background(), "p")

	require.Error(t, err)
	assert.True(t, domain.IsGenerationError(err))
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ReasonBackend, domainErr.Reason())
}

func TestLLMQuizGenerator_Timeout(t *testing.T) {
	model := &fakeModel{delay: time.Second, resp: textResponse("late")}
	g := newTestGenerator(t, model, config.LLMConfig{Timeout: 20 * time.Millisecond})

	_, err := g.Generate(context.Background(), "p")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ReasonTimeout, domainErr.Reason())
}

func TestLLMQuizGenerator_EmptyResponse(t *testing.T) {
	for name, resp := range map[string]*llms.ContentResponse{
		"nil":        nil,
		"no choices": {},
	} {
		t.Run(name, func(t *testing.T) {
			g := newTestGenerator(t, &fakeModel{resp: resp}, config.LLMConfig{})

			_, err := g.Generate(context.Background(), "p")

			var domainErr *domain.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domain.CodeGenerationFailed, domainErr.Code)
			assert.Equal(t, domain.ReasonMalformedResponse, domainErr.Reason())
		})
	}
}

type stringerFragment struct{}

func (stringerFragment) String() string { return "from-stringer" }

func TestReply_Normalize(t *testing.T) {
	assert.Equal(t, "hello", Reply{Kind: PlainText, Text: "hello"}.Normalize())

	fragments := Reply{Kind: FragmentList, Fragments: []any{
		"plain",
		map[string]any{"text": "mapped"},
		map[string]any{"other": "ignored"},
		llms.TextContent{Text: "part"},
		stringerFragment{},
		42,
	}}
	assert.Equal(t, "plain mapped  part from-stringer 42", fragments.Normalize())
}

func TestNewModel_Providers(t *testing.T) {
	_, err := NewModel(context.Background(), config.LLMConfig{Provider: "googleai"})
	assert.Error(t, err)

	_, err = NewModel(context.Background(), config.LLMConfig{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewModel(context.Background(), config.LLMConfig{Provider: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unsupported llm provider")

	m, err := NewModel(context.Background(), config.LLMConfig{
		Provider:  "ollama",
		Model:     "llama3",
		ServerURL: "http://localhost:11434",
	})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
