package interpret

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Providers.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Generator is a raw text-completion backend.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Model() string
}

// LLM interprets bundles with a Generator.
type LLM struct {
	gen    Generator
	logger *zap.Logger
}

// NewLLM wraps a generator.
func NewLLM(gen Generator, logger *zap.Logger) *LLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{gen: gen, logger: logger}
}

// Interpret implements Interpreter.
func (l *LLM) Interpret(ctx context.Context, b Bundle) (*Response, error) {
	user, err := RenderBundle(b)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := l.gen.Complete(ctx, SystemPrompt(b.Kind), user)
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", l.gen.Model(), err)
	}
	l.logger.Debug("interpretation received",
		zap.String("model", l.gen.Model()),
		zap.String("kind", b.Kind),
		zap.Int("suit", b.SuitID),
		zap.Duration("elapsed", time.Since(start)))

	return ParseResponse(reply)
}

// Model returns the backing model name.
func (l *LLM) Model() string {
	return l.gen.Model()
}

// Options select and configure a provider.
type Options struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKeyEnv string
	MaxTokens int
	Logger    *zap.Logger
}

// New builds the Interpreter for the configured provider. ProviderNone
// yields Noop.
func New(opts Options) (Interpreter, error) {
	switch opts.Provider {
	case "", ProviderNone:
		return Noop{}, nil
	case ProviderAnthropic:
		key, err := apiKey(opts.APIKeyEnv, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewLLM(NewAnthropicClient(key, opts.Model, opts.BaseURL, opts.MaxTokens), opts.Logger), nil
	case ProviderOpenAI:
		key, err := apiKey(opts.APIKeyEnv, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewLLM(NewOpenAIClient(key, opts.Model, opts.BaseURL, opts.MaxTokens), opts.Logger), nil
	}
	return nil, fmt.Errorf("unknown interpret provider %q", opts.Provider)
}

func apiKey(envName, fallback string) (string, error) {
	if envName == "" {
		envName = fallback
	}
	key := os.Getenv(envName)
	if key == "" {
		return "", fmt.Errorf("%s is not set", envName)
	}
	return key, nil
}
