// Package anthropic implements port.LLM on the Anthropic Messages API.
package anthropic

import (
	"context"
	"log/slog"

	"onboarding-pr-miner/internal/common"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = "claude-sonnet-4-5-20250929"

// Options configures a Client. BaseURL is only set in tests.
type Options struct {
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string
	Logger    *slog.Logger
}

// Client wraps the Anthropic API for single-turn prompts.
type Client struct {
	api       *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *slog.Logger
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(opts Options) *Client {
	reqOpts := []option.RequestOption{}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL), option.WithMaxRetries(0))
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = common.DiscardLogger()
	}

	client := anthropic.NewClient(reqOpts...)
	return &Client{
		api:       &client,
		model:     anthropic.Model(model),
		maxTokens: opts.MaxTokens,
		logger:    logger,
	}
}

// Send runs one deterministic (temperature 0) completion and returns its text.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	c.logger.DebugContext(ctx, "sending prompt", "provider", "anthropic", "chars", len(prompt))

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", common.WrapError(common.ErrCodeLLM, "anthropic API call", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", common.NewError(common.ErrCodeLLM, "no text content in API response")
	}

	c.logger.InfoContext(ctx, "LLM usage", "provider", "anthropic",
		"input_tokens", msg.Usage.InputTokens, "output_tokens", msg.Usage.OutputTokens)
	return text, nil
}
