package service

import (
	"context"

	"onboarding-pr-miner/internal/domain"
	"onboarding-pr-miner/internal/port"
)

// EnrichmentStats counts items per enrichment status. An empty repo counts
// across all repositories.
func EnrichmentStats(ctx context.Context, store port.ItemStore, repo string) (domain.EnrichmentStats, error) {
	var stats domain.EnrichmentStats
	var err error

	if stats.Total, err = store.Count(ctx, domain.ItemQuery{Repo: repo}); err != nil {
		return stats, err
	}
	counters := map[domain.EnrichmentStatus]*int64{
		domain.StatusPending: &stats.Pending,
		domain.StatusSuccess: &stats.Success,
		domain.StatusFailed:  &stats.Failed,
	}
	for status, dst := range counters {
		n, err := store.Count(ctx, domain.ItemQuery{Repo: repo, Statuses: []domain.EnrichmentStatus{status}})
		if err != nil {
			return stats, err
		}
		*dst = n
	}
	return stats, nil
}

// ClassificationStats counts classified items per difficulty.
func ClassificationStats(ctx context.Context, store port.ItemStore, repo string) (domain.ClassificationStats, error) {
	var stats domain.ClassificationStats
	var err error

	classified := domain.Bool(true)
	if stats.TotalClassified, err = store.Count(ctx, domain.ItemQuery{Repo: repo, Classified: classified}); err != nil {
		return stats, err
	}
	counters := map[domain.Difficulty]*int64{
		domain.DifficultyTrivial: &stats.Trivial,
		domain.DifficultyEasy:    &stats.Easy,
		domain.DifficultyMedium:  &stats.Medium,
		domain.DifficultyHard:    &stats.Hard,
	}
	for difficulty, dst := range counters {
		n, err := store.Count(ctx, domain.ItemQuery{Repo: repo, Classified: classified, Difficulty: difficulty})
		if err != nil {
			return stats, err
		}
		*dst = n
	}
	return stats, nil
}
