package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/domain"
	"onboarding-pr-miner/internal/port"
)

// DefaultClassifyLimit is the batch size of one classification run.
const DefaultClassifyLimit = 100

// ClassificationService 对已补全但未分类的条目调用 LLM 分类
type ClassificationService struct {
	store      port.ItemStore
	classifier port.Classifier
	notifier   port.Notifier
	now        func() time.Time
	logger     *slog.Logger
}

// NewClassificationService creates the service. notifier may be nil.
func NewClassificationService(store port.ItemStore, classifier port.Classifier, notifier port.Notifier, logger *slog.Logger) *ClassificationService {
	if logger == nil {
		logger = common.DiscardLogger()
	}
	return &ClassificationService{
		store:      store,
		classifier: classifier,
		notifier:   notifier,
		now:        time.Now,
		logger:     logger,
	}
}

// ClassifyReport summarizes a classification run.
type ClassifyReport struct {
	Total    int
	Success  int
	Failed   int
	Notified int
	Stats    domain.ClassificationStats
}

// Run classifies up to limit enriched, unclassified items, newest merge first.
// An empty repo covers every repository. Per-item failures are counted and
// skipped.
func (s *ClassificationService) Run(ctx context.Context, repo string, limit int) (*ClassifyReport, error) {
	if limit <= 0 {
		limit = DefaultClassifyLimit
	}

	items, err := s.store.Query(ctx, domain.ItemQuery{
		Statuses:   []domain.EnrichmentStatus{domain.StatusSuccess},
		Repo:       repo,
		Classified: domain.Bool(false),
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	report := &ClassifyReport{Total: len(items)}
	s.logger.InfoContext(ctx, "🧠 classifying items", "count", len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		logger := s.logger.With("repo", item.Repo, "number", item.Number)
		logger.InfoContext(ctx, "classifying", "progress", fmt.Sprintf("%d/%d", i+1, len(items)))

		classification, err := s.classifier.Classify(ctx, item)
		if err != nil {
			logger.ErrorContext(ctx, "❌ classification failed", "error", err)
			report.Failed++
			continue
		}

		now := s.now()
		if err := s.store.UpdateByID(ctx, item.ID, domain.ItemUpdate{
			Classification: classification,
			ClassifiedAt:   &now,
		}); err != nil {
			logger.ErrorContext(ctx, "❌ failed to save classification", "error", err)
			report.Failed++
			continue
		}
		report.Success++

		if s.notifier != nil && classification.IsExcellentOnboarding() {
			item.Classification = classification
			item.ClassifiedAt = &now
			if err := s.notifier.Notify(ctx, item); err != nil {
				logger.WarnContext(ctx, "⚠️ notification failed", "error", err)
			} else {
				report.Notified++
			}
		}
	}

	stats, err := ClassificationStats(ctx, s.store, repo)
	if err != nil {
		return report, err
	}
	report.Stats = stats

	s.logger.InfoContext(ctx, "🎉 classification complete", "success", report.Success, "failed", report.Failed)
	return report, nil
}
