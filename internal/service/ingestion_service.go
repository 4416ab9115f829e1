package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/domain"
	"onboarding-pr-miner/internal/port"
)

const (
	pageSize = 100

	// DefaultEnrichLimit caps how many items one Phase 2 run picks up.
	DefaultEnrichLimit = 10000
	// maxErrorLength bounds the stored enrichment error.
	maxErrorLength = 500
)

// IngestionOptions tunes an IngestionService. Zero values pick defaults.
type IngestionOptions struct {
	EnrichLimit int
	Now         func() time.Time
	Logger      *slog.Logger
}

// IngestionService 两阶段抓取: Phase 1 建索引, Phase 2 补全详情
type IngestionService struct {
	store   port.ItemStore
	factory port.FetcherFactory
	filter  port.Filter

	fetchers    map[domain.Platform]port.Fetcher
	fetcherErrs map[domain.Platform]error

	enrichLimit int
	now         func() time.Time
	logger      *slog.Logger
}

// NewIngestionService 创建新的抓取服务
func NewIngestionService(store port.ItemStore, factory port.FetcherFactory, filter port.Filter, opts IngestionOptions) *IngestionService {
	if opts.EnrichLimit <= 0 {
		opts.EnrichLimit = DefaultEnrichLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = common.DiscardLogger()
	}
	return &IngestionService{
		store:       store,
		factory:     factory,
		filter:      filter,
		fetchers:    make(map[domain.Platform]port.Fetcher),
		fetcherErrs: make(map[domain.Platform]error),
		enrichLimit: opts.EnrichLimit,
		now:         opts.Now,
		logger:      opts.Logger,
	}
}

// fetcher returns the cached fetcher for platform, building it on first use.
// A construction error is cached as well.
func (s *IngestionService) fetcher(platform domain.Platform) (port.Fetcher, error) {
	if f, ok := s.fetchers[platform]; ok {
		return f, nil
	}
	if err, ok := s.fetcherErrs[platform]; ok {
		return nil, err
	}

	f, err := s.factory(platform)
	if err != nil {
		s.fetcherErrs[platform] = err
		return nil, err
	}
	s.fetchers[platform] = f
	return f, nil
}

// IndexReport summarizes Phase 1.
type IndexReport struct {
	Listed   int
	Filtered int
	Upserted int
}

// Index runs Phase 1 for one repository: list merged items, keep the newest
// limit, drop items older than maxAgeDays and upsert the rest as pending.
func (s *IngestionService) Index(ctx context.Context, ref domain.RepoRef, limit, maxAgeDays int) (*IndexReport, error) {
	if limit <= 0 {
		return nil, common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("limit must be positive, got %d", limit))
	}
	logger := s.logger.With("repo", ref.FullName(), "platform", ref.Platform)

	fetcher, err := s.fetcher(ref.Platform)
	if err != nil {
		return nil, err
	}

	maxPages := (limit + pageSize - 1) / pageSize
	logger.InfoContext(ctx, "📥 Phase 1: indexing merged items", "limit", limit, "max_pages", maxPages)

	raws, err := fetcher.ListMerged(ctx, ref.Owner, ref.Name, maxPages)
	if err != nil {
		return nil, err
	}
	report := &IndexReport{Listed: len(raws)}

	if len(raws) > limit {
		raws = raws[:limit]
	}
	if s.filter != nil {
		kept := s.filter.FilterByMergedAt(raws, maxAgeDays)
		report.Filtered = len(raws) - len(kept)
		raws = kept
	}

	items := make([]*domain.Item, 0, len(raws))
	for _, raw := range raws {
		var hint *int
		if nums := fetcher.ExtractIssueNumbers(raw.Body); len(nums) > 0 {
			hint = domain.Int(nums[0])
		}
		items = append(items, raw.ToItem(ref.FullName(), hint))
	}

	if err := s.store.UpsertBatch(ctx, items); err != nil {
		if common.CodeOf(err) != common.ErrCodeDatabase {
			err = common.WrapError(common.ErrCodeDatabase, "upsert batch", err)
		}
		return nil, err
	}
	report.Upserted = len(items)

	logger.InfoContext(ctx, "✅ Phase 1 complete", "listed", report.Listed, "filtered", report.Filtered, "upserted", report.Upserted)
	return report, nil
}

// EnrichReport summarizes Phase 2.
type EnrichReport struct {
	Total   int
	Success int
	Failed  int
}

// Enrich runs Phase 2 over pending and failed items, scoped to ref when it is
// non-nil. Items are processed one at a time; a failure is recorded on the
// item and the run moves on. Authentication errors stop the run.
func (s *IngestionService) Enrich(ctx context.Context, ref *domain.RepoRef) (*EnrichReport, error) {
	q := domain.ItemQuery{
		Statuses: []domain.EnrichmentStatus{domain.StatusPending, domain.StatusFailed},
		Limit:    s.enrichLimit,
	}
	if ref != nil {
		q.Repo = ref.FullName()
		q.Platform = ref.Platform
	}

	items, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	report := &EnrichReport{Total: len(items)}
	s.logger.InfoContext(ctx, "🔎 Phase 2: enriching items", "count", len(items))

	for i, item := range items {
		logger := s.logger.With("repo", item.Repo, "number", item.Number, "platform", item.Platform)
		logger.DebugContext(ctx, "enriching", "progress", fmt.Sprintf("%d/%d", i+1, len(items)))

		fetcher, err := s.fetcher(item.Platform)
		if err != nil {
			logger.ErrorContext(ctx, "❌ no fetcher for platform", "error", err)
			report.Failed++
			s.record(ctx, logger, item, domain.ItemUpdate{
				EnrichmentStatus: domain.StatusFailed,
				EnrichmentError:  domain.String(common.Truncate(err.Error(), maxErrorLength)),
			})
			continue
		}

		enrichment, err := s.enrichOne(ctx, fetcher, item)
		if err != nil {
			report.Failed++
			logger.WarnContext(ctx, "❌ enrichment failed", "error", err)
			s.record(ctx, logger, item, domain.ItemUpdate{
				EnrichmentStatus: domain.StatusFailed,
				EnrichmentError:  domain.String(common.Truncate(err.Error(), maxErrorLength)),
			})

			if errors.Is(err, common.ErrUnauthorized) {
				return report, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			continue
		}

		if s.record(ctx, logger, item, domain.ItemUpdate{
			EnrichmentStatus: domain.StatusSuccess,
			Enrichment:       enrichment,
		}) {
			report.Success++
		} else {
			report.Failed++
		}
	}

	s.logger.InfoContext(ctx, "✅ Phase 2 complete", "total", report.Total, "success", report.Success, "failed", report.Failed)
	return report, nil
}

func (s *IngestionService) enrichOne(ctx context.Context, fetcher port.Fetcher, item *domain.Item) (*domain.Enrichment, error) {
	owner, name, err := domain.SplitRepo(item.Repo)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidInput, "resolve repository", err)
	}
	return fetcher.Enrich(ctx, owner, name, item.Number, item.Body)
}

// record writes a status transition. A failed write is logged and reported
// as false; the item keeps its previous durable status.
func (s *IngestionService) record(ctx context.Context, logger *slog.Logger, item *domain.Item, update domain.ItemUpdate) bool {
	if !item.EnrichmentStatus.CanTransitionTo(update.EnrichmentStatus) {
		logger.WarnContext(ctx, "refusing status transition", "from", item.EnrichmentStatus, "to", update.EnrichmentStatus)
		return false
	}

	now := s.now()
	update.EnrichmentAttemptedAt = &now
	if err := s.store.UpdateByID(ctx, item.ID, update); err != nil {
		logger.ErrorContext(ctx, "⚠️ failed to record enrichment status", "status", update.EnrichmentStatus, "error", err)
		return false
	}
	return true
}

// RunOptions selects the phases of one ingestion run.
type RunOptions struct {
	Ref        *domain.RepoRef
	Limit      int
	SkipIndex  bool
	SkipEnrich bool
	MaxAgeDays int
}

// RunReport carries what each phase did plus the resulting status counts.
type RunReport struct {
	Index  *IndexReport
	Enrich *EnrichReport
	Stats  domain.EnrichmentStats
}

// Run executes Phase 1 then Phase 2 as selected by opts.
func (s *IngestionService) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if opts.SkipIndex && opts.SkipEnrich {
		return nil, common.WrapError(common.ErrCodeInvalidInput, "cannot skip both phases", common.ErrInvalidInput)
	}
	if !opts.SkipIndex && opts.Ref == nil {
		return nil, common.WrapError(common.ErrCodeInvalidInput, "a repository is required for indexing", common.ErrInvalidInput)
	}

	report := &RunReport{}
	if !opts.SkipIndex {
		idx, err := s.Index(ctx, *opts.Ref, opts.Limit, opts.MaxAgeDays)
		if err != nil {
			return report, err
		}
		report.Index = idx
	}

	if !opts.SkipEnrich {
		enr, err := s.Enrich(ctx, opts.Ref)
		report.Enrich = enr
		if err != nil {
			return report, err
		}
	}

	repo := ""
	if opts.Ref != nil {
		repo = opts.Ref.FullName()
	}
	stats, err := EnrichmentStats(ctx, s.store, repo)
	if err != nil {
		return report, err
	}
	report.Stats = stats
	return report, nil
}
