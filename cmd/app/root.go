package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/domain"
	"onboarding-pr-miner/internal/service"
)

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "miner",
		Short: "Mine merged PRs/MRs and classify them as onboarding tasks",
		Long: `miner indexes merged pull requests (GitHub) and merge requests (GitLab),
enriches them with diffs and linked-issue discussion, and asks an LLM how
suitable each one is as a first task for a newcomer.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(a.fetchCmd(), a.enrichCmd(), a.classifyCmd(), a.statsCmd())
	return root
}

// parseOptionalRef parses args[0] when present.
func parseOptionalRef(args []string) (*domain.RepoRef, error) {
	if len(args) == 0 {
		return nil, nil
	}
	ref, err := domain.ParseRepoRef(args[0])
	if err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidInput, "invalid repository", err)
	}
	return &ref, nil
}

func scopeName(ref *domain.RepoRef) string {
	if ref == nil {
		return "all repositories"
	}
	return ref.FullName()
}

func (a *app) fetchCmd() *cobra.Command {
	var (
		limit      int
		noEnrich   bool
		enrichOnly bool
		maxAgeDays int
	)
	cmd := &cobra.Command{
		Use:   "fetch [repo-or-url]",
		Short: "Index merged PRs/MRs, then enrich pending and failed ones",
		Example: `  miner fetch facebook/react
  miner fetch https://gitlab.com/gitlab-org/gitlab --limit 500
  miner fetch --enrich-only`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !enrichOnly {
				return common.NewError(common.ErrCodeInvalidInput, "a repository is required unless --enrich-only is set")
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ref, err := parseOptionalRef(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.Pipeline.Limit
			}
			if !cmd.Flags().Changed("max-age-days") {
				maxAgeDays = a.cfg.Pipeline.MaxAgeDays
			}
			return a.runIngestion(cmd, service.RunOptions{
				Ref:        ref,
				Limit:      limit,
				SkipIndex:  enrichOnly,
				SkipEnrich: noEnrich,
				MaxAgeDays: maxAgeDays,
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum number of merged items to index")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Only index; skip enrichment")
	cmd.Flags().BoolVar(&enrichOnly, "enrich-only", false, "Skip indexing; enrich pending and failed items")
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "Skip items merged more than N days ago (0 = no limit)")
	cmd.MarkFlagsMutuallyExclusive("no-enrich", "enrich-only")
	return cmd
}

func (a *app) enrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich [repo-or-url]",
		Short: "Enrich pending and failed items, optionally for one repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ref, err := parseOptionalRef(args)
			if err != nil {
				return err
			}
			return a.runIngestion(cmd, service.RunOptions{Ref: ref, SkipIndex: true})
		},
	}
}

func (a *app) runIngestion(cmd *cobra.Command, opts service.RunOptions) error {
	ctx := cmd.Context()
	store, err := a.openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer closeIfCloser(store)

	svc := service.NewIngestionService(store, a.factory(a.cfg, a.logger), a.newFilter(), service.IngestionOptions{
		EnrichLimit: a.cfg.Pipeline.EnrichLimit,
		Logger:      a.logger,
	})
	if opts.Ref != nil {
		a.ui.Info("Repository: %s (%s)", opts.Ref.FullName(), opts.Ref.Platform)
	}

	report, runErr := svc.Run(ctx, opts)
	if report != nil {
		if report.Index != nil {
			a.ui.Success("Indexed %d items (%d listed, %d filtered by age)",
				report.Index.Upserted, report.Index.Listed, report.Index.Filtered)
		}
		if report.Enrich != nil {
			a.ui.Counts("Enrichment", report.Enrich.Total, report.Enrich.Success, report.Enrich.Failed)
		}
	}
	if runErr != nil {
		return runErr
	}
	a.ui.EnrichmentStats(scopeName(opts.Ref), report.Stats)
	return nil
}

func (a *app) classifyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "classify [repo]",
		Short: "Classify enriched, unclassified items with the configured LLM",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateForClassify(); err != nil {
				return err
			}
			ref, err := parseOptionalRef(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.Classifier.Limit
			}
			return a.runClassify(cmd, ref, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", service.DefaultClassifyLimit, "Maximum number of items to classify")
	return cmd
}

func (a *app) runClassify(cmd *cobra.Command, ref *domain.RepoRef, limit int) error {
	ctx := cmd.Context()
	store, err := a.openStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer closeIfCloser(store)
	l, err := a.openLLM(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer closeIfCloser(l)

	repo := ""
	if ref != nil {
		repo = ref.FullName()
	}
	a.ui.Info("Classifying up to %d items in %s with %s", limit, scopeName(ref), a.cfg.LLM.Provider)

	svc := service.NewClassificationService(store, a.newClassifier(l), a.newNotifier(), a.logger)
	report, err := svc.Run(ctx, repo, limit)
	if report != nil {
		a.ui.Counts("Classification", report.Total, report.Success, report.Failed)
		if report.Notified > 0 {
			a.ui.Info("Sent %d notifications", report.Notified)
		}
	}
	if err != nil {
		return err
	}
	a.ui.ClassificationStats(scopeName(ref), report.Stats)
	return nil
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [repo]",
		Short: "Show enrichment and classification counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ref, err := parseOptionalRef(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := a.openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer closeIfCloser(store)

			repo := ""
			if ref != nil {
				repo = ref.FullName()
			}
			enrichment, err := service.EnrichmentStats(ctx, store, repo)
			if err != nil {
				return fmt.Errorf("enrichment stats: %w", err)
			}
			classification, err := service.ClassificationStats(ctx, store, repo)
			if err != nil {
				return fmt.Errorf("classification stats: %w", err)
			}
			a.ui.EnrichmentStats(scopeName(ref), enrichment)
			a.ui.ClassificationStats(scopeName(ref), classification)
			return nil
		},
	}
}
