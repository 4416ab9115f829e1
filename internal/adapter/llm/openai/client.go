// Package openai implements port.LLM on the OpenAI chat completions API and
// any server that speaks it.
package openai

import (
	"context"
	"log/slog"

	"onboarding-pr-miner/internal/common"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const DefaultModel = "gpt-4o"

type Options struct {
	APIKey    string
	Model     string
	MaxTokens int64
	// BaseURL points at an OpenAI-compatible endpoint.
	BaseURL string
	Logger  *slog.Logger
}

type Client struct {
	api       openai.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

func NewClient(opts Options) *Client {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
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
	return &Client{
		api:       openai.NewClient(reqOpts...),
		model:     model,
		maxTokens: opts.MaxTokens,
		logger:    logger,
	}
}

func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	c.logger.DebugContext(ctx, "sending prompt", "provider", "openai", "model", c.model, "chars", len(prompt))

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(0),
		MaxCompletionTokens: openai.Int(c.maxTokens),
	})
	if err != nil {
		return "", common.WrapError(common.ErrCodeLLM, "openai chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", common.NewError(common.ErrCodeLLM, "no choices returned")
	}

	c.logger.InfoContext(ctx, "LLM usage", "provider", "openai",
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}
