package gemini

import (
	"context"
	"log/slog"
	"strings"

	"onboarding-pr-miner/internal/common"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash-lite"

type Options struct {
	APIKey    string
	Model     string
	MaxTokens int32
	Logger    *slog.Logger
}

// Client 实现了 port.LLM 接口
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeLLM, "create gemini client", err)
	}

	name := opts.Model
	if name == "" {
		name = DefaultModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(0)
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxTokens)
	}
	// 强制要求返回 JSON，降低解析错误的概率
	model.ResponseMIMEType = "application/json"

	logger := opts.Logger
	if logger == nil {
		logger = common.DiscardLogger()
	}
	return &Client{client: client, model: model, logger: logger}, nil
}

func (g *Client) Send(ctx context.Context, prompt string) (string, error) {
	g.logger.DebugContext(ctx, "sending prompt", "provider", "gemini", "chars", len(prompt))

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", common.WrapError(common.ErrCodeLLM, "AI 调用失败", err)
	}
	if u := resp.UsageMetadata; u != nil {
		g.logger.InfoContext(ctx, "LLM usage", "provider", "gemini",
			"prompt_tokens", u.PromptTokenCount, "candidate_tokens", u.CandidatesTokenCount)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", common.NewError(common.ErrCodeLLM, "AI 返回内容为空")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", common.NewError(common.ErrCodeLLM, "AI 返回格式错误")
	}
	return sb.String(), nil
}

func (g *Client) Close() error {
	return g.client.Close()
}
