// Package quizgen builds quiz prompts, calls the language model and parses its replies.
package quizgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"wiki-quiz/internal/config"
	"wiki-quiz/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const defaultGenerationTimeout = 120 * time.Second

// NewModel creates the langchaingo model for the configured provider.
func NewModel(ctx context.Context, cfg config.LLMConfig) (llms.Model, error) {
	switch cfg.Provider {
	case "googleai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("googleai provider requires llm.api_key (or GOOGLE_API_KEY)")
		}
		return googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.ServerURL),
			ollama.WithModel(cfg.Model),
			ollama.WithHTTPClient(&http.Client{
				Transport: &http.Transport{
					MaxIdleConns:        10,
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     30 * time.Second,
				},
			}),
		)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires llm.api_key")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.ServerURL != "" && !strings.Contains(cfg.ServerURL, "11434") {
			opts = append(opts, openai.WithBaseURL(cfg.ServerURL))
		}
		return openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// ReplyKind tags the shape a backend reply arrived in.
type ReplyKind int

const (
	PlainText ReplyKind = iota
	FragmentList
)

// Reply is a backend reply before normalization.
type Reply struct {
	Kind      ReplyKind
	Text      string
	Fragments []any
}

// Normalize flattens the reply into one string. Fragments are coerced to text and joined with a space.
func (r Reply) Normalize() string {
	switch r.Kind {
	case FragmentList:
		parts := make([]string, 0, len(r.Fragments))
		for _, f := range r.Fragments {
			parts = append(parts, fragmentText(f))
		}
		return strings.Join(parts, " ")
	default:
		return r.Text
	}
}

func fragmentText(f any) string {
	switch v := f.(type) {
	case nil:
		return ""
	case string:
		return v
	case llms.TextContent:
		return v.Text
	case map[string]any:
		if text, ok := v["text"]; ok {
			return fmt.Sprint(text)
		}
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// ReplyFromResponse classifies a langchaingo response: one choice is plain text,
// several choices are fragments.
func ReplyFromResponse(resp *llms.ContentResponse) (Reply, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return Reply{}, errors.New("response contains no choices")
	}
	if len(resp.Choices) == 1 {
		if resp.Choices[0] == nil {
			return Reply{}, errors.New("response choice is nil")
		}
		return Reply{Kind: PlainText, Text: resp.Choices[0].Content}, nil
	}
	fragments := make([]any, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		if choice == nil {
			continue
		}
		fragments = append(fragments, choice.Content)
	}
	if len(fragments) == 0 {
		return Reply{}, errors.New("response choices are all nil")
	}
	return Reply{Kind: FragmentList, Fragments: fragments}, nil
}

// LLMQuizGenerator implements domain.QuizGenerator with one synchronous model call per prompt.
type LLMQuizGenerator struct {
	model       llms.Model
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// NewLLMQuizGenerator wraps a langchaingo model.
func NewLLMQuizGenerator(model llms.Model, cfg config.LLMConfig, logger *zap.Logger) (*LLMQuizGenerator, error) {
	if model == nil {
		return nil, fmt.Errorf("llm model cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	return &LLMQuizGenerator{
		model:       model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// Generate sends prompt to the model and returns the normalized reply. No retries.
func (g *LLMQuizGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			g.logger.Error("LLM request timed out", zap.Error(err), zap.Duration("timeout", g.timeout))
			return "", domain.NewGenerationError(domain.ReasonTimeout, err)
		}
		g.logger.Error("Failed to get response from LLM", zap.Error(err))
		return "", domain.NewGenerationError(domain.ReasonBackend, err)
	}

	reply, err := ReplyFromResponse(resp)
	if err != nil {
		g.logger.Error("LLM response could not be coerced to text", zap.Error(err))
		return "", domain.NewGenerationError(domain.ReasonMalformedResponse, err)
	}

	text := reply.Normalize()
	g.logger.Debug("LLM reply received",
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("reply_chars", len(text)),
		zap.Bool("fragmented", reply.Kind == FragmentList),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

var _ domain.QuizGenerator = (*LLMQuizGenerator)(nil)
