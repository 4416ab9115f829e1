// Package llm selects the configured LLM provider.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"onboarding-pr-miner/internal/adapter/llm/anthropic"
	"onboarding-pr-miner/internal/adapter/llm/gemini"
	"onboarding-pr-miner/internal/adapter/llm/openai"
	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/port"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"

	DefaultMaxTokens = 16384
)

// Providers lists the accepted provider names.
var Providers = []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini}

type Options struct {
	Provider  string
	Model     string
	APIKey    string
	MaxTokens int
	BaseURL   string
	Logger    *slog.Logger
}

// New builds the client for opts.Provider. Gemini clients hold a connection;
// callers close them through io.Closer.
func New(ctx context.Context, opts Options) (port.LLM, error) {
	if opts.APIKey == "" {
		return nil, common.NewError(common.ErrCodeConfig, fmt.Sprintf("%s API key is required but not provided", opts.Provider))
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	switch strings.ToLower(opts.Provider) {
	case ProviderAnthropic:
		return anthropic.NewClient(anthropic.Options{
			APIKey: opts.APIKey, Model: opts.Model, MaxTokens: int64(maxTokens), BaseURL: opts.BaseURL, Logger: opts.Logger,
		}), nil
	case ProviderOpenAI:
		return openai.NewClient(openai.Options{
			APIKey: opts.APIKey, Model: opts.Model, MaxTokens: int64(maxTokens), BaseURL: opts.BaseURL, Logger: opts.Logger,
		}), nil
	case ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Options{
			APIKey: opts.APIKey, Model: opts.Model, MaxTokens: int32(maxTokens), Logger: opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, common.NewError(common.ErrCodeConfig,
			fmt.Sprintf("unsupported LLM provider %q (must be one of %s)", opts.Provider, strings.Join(Providers, ", ")))
	}
}
