// Package ai asks a language model for workflow optimizations and converts
// its JSON answer into suggestions.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/blackwell-systems/pipewatch/internal/config"
	"github.com/blackwell-systems/pipewatch/internal/suggest"
	"github.com/blackwell-systems/pipewatch/internal/workflow"
)

// Generation parameters sent with every request.
const (
	temperature = 0.3
	maxTokens   = 2000
)

// ErrEmptyResponse is returned when the model answers with no content.
var ErrEmptyResponse = errors.New("ai: model returned no content")

// Source produces suggestions from an LLM.
type Source struct {
	llm       llms.Model
	modelName string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewSource creates a Source for the configured provider.
func NewSource(cfg config.AI, logger *slog.Logger) (*Source, error) {
	var model llms.Model
	var err error

	switch cfg.Provider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return NewSourceWithModel(model, cfg.Model, cfg.Timeout, logger), nil
}

// NewSourceWithModel wraps an existing model. A zero timeout leaves the
// caller's context deadline in charge.
func NewSourceWithModel(model llms.Model, modelName string, timeout time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{llm: model, modelName: modelName, timeout: timeout, logger: logger}
}

// Model returns the LLM model name.
func (s *Source) Model() string {
	return s.modelName
}

// Suggest sends doc to the model and returns the suggestions it proposes.
// Items that fail validation are dropped and logged; they do not fail the
// call.
func (s *Source) Suggest(ctx context.Context, doc *workflow.Document) ([]suggest.Suggestion, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	userPrompt, err := buildUserPrompt(doc)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	content, err := s.generate(ctx, systemPrompt, userPrompt)
	duration := time.Since(start)
	if err != nil {
		s.logger.Warn("ai analysis failed", "model", s.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return nil, err
	}

	suggestions, dropped, err := parseResponse(content)
	if err != nil {
		return nil, err
	}
	for _, d := range dropped {
		s.logger.Warn("dropping invalid ai suggestion", "index", d.Index, "error", d.Err)
	}
	s.logger.Debug("ai analysis complete", "model", s.modelName, "suggestions", len(suggestions), "duration_ms", duration.Milliseconds())
	return suggestions, nil
}

func (s *Source) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := s.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return "", ErrEmptyResponse
	}
	return response.Choices[0].Content, nil
}
