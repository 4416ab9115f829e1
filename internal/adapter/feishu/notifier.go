package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/domain"
)

// statusError is a non-200 webhook answer.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("飞书 API 报错: 状态码 %d", e.code)
}

// retryable rejects client errors; the payload will not get better.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

// Notifier 实现了 port.Notifier 接口
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	retryOpts  []common.Option
	logger     *slog.Logger
}

func NewNotifier(webhook string, logger *slog.Logger, retryOpts ...common.Option) *Notifier {
	if logger == nil {
		logger = common.DiscardLogger()
	}
	if webhook == "" {
		logger.Warn("⚠️ 警告: 飞书 Webhook 为空，推送功能将无法工作！")
	}
	return &Notifier{
		webhookURL: webhook,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retryOpts:  retryOpts,
		logger:     logger,
	}
}

// Notify 发送飞书卡片消息 (Schema 2.0), 推荐一个适合新人上手的 PR
func (n *Notifier) Notify(ctx context.Context, item *domain.Item) error {
	if n.webhookURL == "" {
		return common.NewError(common.ErrCodeConfig, "Webhook URL 为空")
	}
	if item.Classification == nil {
		return common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("%s#%d has no classification", item.Repo, item.Number))
	}

	body, err := json.Marshal(buildCard(item))
	if err != nil {
		return common.WrapError(common.ErrCodeInternal, "encode card", err)
	}

	opts := append([]common.Option{
		common.WithMaxRetries(3),
		common.WithInitialDelay(500 * time.Millisecond),
		common.WithRetryIf(retryable),
	}, n.retryOpts...)

	err = common.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &statusError{code: resp.StatusCode}
		}
		return nil
	}, opts...)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "发送请求失败", err)
	}

	n.logger.InfoContext(ctx, "📨 notification sent", "repo", item.Repo, "number", item.Number)
	return nil
}

func buildCard(item *domain.Item) map[string]any {
	c := item.Classification

	// 1. 准备标题
	title := fmt.Sprintf("🌱 新人友好 PR: %s #%d", item.Repo, item.Number)

	// 2. 构造 Markdown 内容
	mdContent := fmt.Sprintf(`**%s**
**📊 难度:** %s  |  **任务清晰度:** %s  |  **可复现:** %s
**🗓 合并日期:** %s

**🏷 分类:** %s
**📚 可学到:** %s
**🧰 前置知识:** %s

**🤖 AI评价:**
%s
`,
		item.Title,
		c.Difficulty, c.TaskClarity, c.IsReproducible,
		item.MergedAt.Format("2006-01-02"),
		strings.Join(c.Categories, ", "),
		strings.Join(c.ConceptsTaught, ", "),
		strings.Join(c.Prerequisites, ", "),
		c.Reasoning)

	// 3. 构造 Schema 2.0 JSON 结构
	return map[string]any{
		"msg_type": "interactive",
		"card": map[string]any{
			"schema": "2.0",
			"config": map[string]any{
				"update_multi": true,
			},
			"header": map[string]any{
				"title": map[string]any{
					"tag":     "plain_text",
					"content": title,
				},
				"template": "green",
			},
			"body": map[string]any{
				"direction": "vertical",
				"elements": []map[string]any{
					{
						"tag":       "markdown",
						"content":   mdContent,
						"text_size": "normal",
					},
					{
						"tag": "button",
						"text": map[string]any{
							"tag":     "plain_text",
							"content": "🔗 查看 PR",
						},
						"type": "primary",
						"behaviors": []map[string]any{
							{
								"type":        "open_url",
								"default_url": item.URL,
							},
						},
					},
				},
			},
		},
	}
}
