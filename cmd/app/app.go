package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"onboarding-pr-miner/internal/adapter/feishu"
	"onboarding-pr-miner/internal/adapter/filter"
	"onboarding-pr-miner/internal/adapter/github"
	"onboarding-pr-miner/internal/adapter/gitlab"
	"onboarding-pr-miner/internal/adapter/llm"
	"onboarding-pr-miner/internal/adapter/repository"
	"onboarding-pr-miner/internal/classifier"
	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/config"
	"onboarding-pr-miner/internal/domain"
	"onboarding-pr-miner/internal/output"
	"onboarding-pr-miner/internal/port"
)

// app holds what the commands share. The open* hooks are swapped in tests.
type app struct {
	ui     *output.UI
	cfg    *config.Config
	logger *slog.Logger

	cfgFile  string
	logLevel string

	openStore func(ctx context.Context, cfg *config.Config) (port.ItemStore, error)
	openLLM   func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (port.LLM, error)
	factory   func(cfg *config.Config, logger *slog.Logger) port.FetcherFactory
}

func newApp(ui *output.UI) *app {
	return &app{
		ui:        ui,
		openStore: openPostgres,
		openLLM:   openLLM,
		factory:   fetcherFactory,
	}
}

// loadConfig runs before every command.
func (a *app) loadConfig() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = common.NewLogger(cfg.Log.Level, cfg.Log.Format, a.ui.ErrOut)
	return nil
}

func openPostgres(ctx context.Context, cfg *config.Config) (port.ItemStore, error) {
	return repository.Open(ctx, cfg.Database.URL)
}

func openLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (port.LLM, error) {
	return llm.New(ctx, llm.Options{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey(),
		MaxTokens: cfg.LLM.MaxTokens,
		BaseURL:   cfg.LLM.BaseURL,
		Logger:    logger,
	})
}

// fetcherFactory checks platform credentials only when a platform is first used.
func fetcherFactory(cfg *config.Config, logger *slog.Logger) port.FetcherFactory {
	return func(platform domain.Platform) (port.Fetcher, error) {
		switch platform {
		case domain.PlatformGitHub:
			if cfg.GitHub.Token == "" {
				return nil, common.NewError(common.ErrCodeConfig, "GITHUB_TOKEN is required for GitHub repositories")
			}
			return github.NewFetcher(github.Options{Token: cfg.GitHub.Token, Logger: logger})
		case domain.PlatformGitLab:
			if cfg.GitLab.Token == "" {
				return nil, common.NewError(common.ErrCodeConfig, "GITLAB_TOKEN is required for GitLab repositories")
			}
			return gitlab.NewFetcher(gitlab.Options{Token: cfg.GitLab.Token, BaseURL: cfg.GitLab.BaseURL, Logger: logger}), nil
		default:
			return nil, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("unsupported platform %q", platform))
		}
	}
}

func (a *app) newClassifier(l port.LLM) *classifier.Classifier {
	return classifier.New(l, classifier.Options{
		MaxRetries: a.cfg.Classifier.MaxRetries,
		RetryDelay: a.cfg.Classifier.RetryDelay,
		Logger:     a.logger,
	})
}

func (a *app) newFilter() port.Filter {
	return filter.NewItemFilter()
}

// newNotifier returns nil when no webhook is configured.
func (a *app) newNotifier() port.Notifier {
	if a.cfg.Feishu.WebhookURL == "" {
		return nil
	}
	return feishu.NewNotifier(a.cfg.Feishu.WebhookURL, a.logger)
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}
