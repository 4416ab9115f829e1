package port

import (
	"context"

	"onboarding-pr-miner/internal/domain"
)

// Fetcher 平台适配器：把 GitHub / GitLab 的 REST 语义转换成统一的 Item 形状
type Fetcher interface {
	Platform() domain.Platform
	// ListMerged pages through merged items, newest first, 100 per page.
	ListMerged(ctx context.Context, owner, repo string, maxPages int) ([]*domain.RawItem, error)
	// Enrich fetches diffs, the first linked issue and its discussion.
	Enrich(ctx context.Context, owner, repo string, number int, description string) (*domain.Enrichment, error)
	ExtractIssueNumbers(text string) []int
}

// FetcherFactory builds the fetcher for a platform.
type FetcherFactory func(platform domain.Platform) (Fetcher, error)

// Filter 过滤 Phase 1 的列表结果
type Filter interface {
	FilterByMergedAt(items []*domain.RawItem, maxDaysOld int) []*domain.RawItem
}

// LLM 文本生成接口
type LLM interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// Classifier labels an enriched item.
type Classifier interface {
	Classify(ctx context.Context, item *domain.Item) (*domain.Classification, error)
}

// Notifier 通知接口
type Notifier interface {
	Notify(ctx context.Context, item *domain.Item) error
}

// ItemStore 持久化接口, keyed by (repo, number).
type ItemStore interface {
	UpsertBatch(ctx context.Context, items []*domain.Item) error
	Query(ctx context.Context, q domain.ItemQuery) ([]*domain.Item, error)
	UpdateByID(ctx context.Context, id uint, update domain.ItemUpdate) error
	// GetByKey returns nil, nil when no item matches.
	GetByKey(ctx context.Context, repo string, number int) (*domain.Item, error)
	Count(ctx context.Context, q domain.ItemQuery) (int64, error)
}
