// Package classifier turns an enriched item into an onboarding classification
// by prompting an LLM and repairing or re-asking until the answer validates.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/domain"
	"onboarding-pr-miner/internal/port"
)

const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = 2 * time.Second
)

// Options configures a Classifier. MaxRetries counts attempts after the first.
type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	Sleep      common.SleepFunc
	Logger     *slog.Logger
}

// DefaultOptions 默认: 2 次重试, 间隔 2 秒
func DefaultOptions() Options {
	return Options{MaxRetries: DefaultMaxRetries, RetryDelay: DefaultRetryDelay}
}

// Classifier implements port.Classifier.
type Classifier struct {
	llm        port.LLM
	maxRetries int
	retryDelay time.Duration
	sleep      common.SleepFunc
	logger     *slog.Logger
}

func New(llm port.LLM, opts Options) *Classifier {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = common.Sleep
	}
	if opts.Logger == nil {
		opts.Logger = common.DiscardLogger()
	}
	return &Classifier{
		llm:        llm,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		sleep:      opts.Sleep,
		logger:     opts.Logger,
	}
}

// failure is a rejected attempt. Each kind decides how the next response is
// obtained and which error ends the loop.
type failure interface {
	error
	retry(ctx context.Context, c *Classifier, prompt string) (string, error)
	terminal(attempts int) error
}

// parseFailure: the response was not a JSON object. The malformed text is
// sent back with a repair request.
type parseFailure struct {
	response string
	err      error
}

func (f *parseFailure) Error() string { return "parse: " + f.err.Error() }

func (f *parseFailure) retry(ctx context.Context, c *Classifier, _ string) (string, error) {
	c.logger.InfoContext(ctx, "asking LLM to fix malformed JSON")
	return c.send(ctx, RepairPrompt(f.response))
}

func (f *parseFailure) terminal(attempts int) error {
	return common.WrapError(common.ErrCodeLLMParse,
		fmt.Sprintf("Failed to parse LLM response after %d attempts", attempts), f.err)
}

// validationFailure: the JSON parsed but is not a valid classification. After
// RetryDelay the original prompt is sent again.
type validationFailure struct {
	err error
}

func (f *validationFailure) Error() string { return "validate: " + f.err.Error() }

func (f *validationFailure) retry(ctx context.Context, c *Classifier, prompt string) (string, error) {
	c.logger.InfoContext(ctx, "retrying classification", "delay", c.retryDelay.String())
	if err := c.sleep(ctx, c.retryDelay); err != nil {
		return "", err
	}
	return c.send(ctx, prompt)
}

func (f *validationFailure) terminal(attempts int) error {
	return common.WrapError(common.ErrCodeInvalidClassification,
		fmt.Sprintf("Invalid classification format after %d attempts", attempts), f.err)
}

// evaluate parses and validates one response.
func evaluate(response string) (*domain.Classification, failure) {
	raw, err := ParseResponse(response)
	if err != nil {
		return nil, &parseFailure{response: response, err: err}
	}
	classification, err := Validate(raw)
	if err != nil {
		return nil, &validationFailure{err: err}
	}
	return classification, nil
}

// Classify 对单个条目进行分类
// At most MaxRetries+1 responses are evaluated. LLM transport errors end the
// loop immediately.
func (c *Classifier) Classify(ctx context.Context, item *domain.Item) (*domain.Classification, error) {
	logger := c.logger.With("repo", item.Repo, "number", item.Number)
	attempts := c.maxRetries + 1

	itemContext := BuildContext(item)
	prompt := BuildPrompt(itemContext)
	logger.DebugContext(ctx, "built context", "chars", len(itemContext))

	response, err := c.send(ctx, prompt)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		classification, fail := evaluate(response)
		if fail == nil {
			logger.InfoContext(ctx, "✓ classified", "difficulty", classification.Difficulty, "attempt", attempt)
			return classification, nil
		}

		logger.WarnContext(ctx, "rejected LLM response", "attempt", attempt, "of", attempts, "error", fail.Error())
		if attempt >= attempts {
			return nil, fail.terminal(attempts)
		}

		if response, err = fail.retry(ctx, c, prompt); err != nil {
			return nil, err
		}
	}
}

func (c *Classifier) send(ctx context.Context, prompt string) (string, error) {
	response, err := c.llm.Send(ctx, prompt)
	if err != nil {
		if common.CodeOf(err) != "" {
			return "", err
		}
		return "", common.WrapError(common.ErrCodeLLM, "LLM call failed", err)
	}
	return response, nil
}
