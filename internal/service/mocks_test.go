package service

import (
	"context"
	"sort"
	"sync"

	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockFetcher 模拟平台适配器
type MockFetcher struct {
	mock.Mock
	platform domain.Platform
}

func (m *MockFetcher) Platform() domain.Platform { return m.platform }

func (m *MockFetcher) ListMerged(ctx context.Context, owner, repo string, maxPages int) ([]*domain.RawItem, error) {
	args := m.Called(ctx, owner, repo, maxPages)
	items, _ := args.Get(0).([]*domain.RawItem)
	return items, args.Error(1)
}

func (m *MockFetcher) Enrich(ctx context.Context, owner, repo string, number int, description string) (*domain.Enrichment, error) {
	args := m.Called(ctx, owner, repo, number, description)
	e, _ := args.Get(0).(*domain.Enrichment)
	return e, args.Error(1)
}

func (m *MockFetcher) ExtractIssueNumbers(text string) []int {
	args := m.Called(text)
	nums, _ := args.Get(0).([]int)
	return nums
}

// MockClassifier 模拟分类器
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, item *domain.Item) (*domain.Classification, error) {
	args := m.Called(ctx, item)
	c, _ := args.Get(0).(*domain.Classification)
	return c, args.Error(1)
}

// MockNotifier 模拟通知
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, item *domain.Item) error {
	return m.Called(ctx, item).Error(0)
}

// passFilter keeps everything and records the age it was asked for.
type passFilter struct {
	maxDaysOld int
	drop       int
}

func (f *passFilter) FilterByMergedAt(items []*domain.RawItem, maxDaysOld int) []*domain.RawItem {
	f.maxDaysOld = maxDaysOld
	if f.drop > len(items) {
		return nil
	}
	return items[:len(items)-f.drop]
}

// memStore is an in-memory ItemStore with the same query semantics as the
// Postgres repository.
type memStore struct {
	mu      sync.Mutex
	items   map[uint]*domain.Item
	nextID  uint
	updates []domain.ItemUpdate

	upsertErr error
	updateErr func(id uint, u domain.ItemUpdate) error
}

func newMemStore() *memStore {
	return &memStore{items: make(map[uint]*domain.Item), nextID: 1}
}

func (s *memStore) seed(items ...*domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		it.ID = s.nextID
		s.nextID++
		s.items[it.ID] = it
	}
}

func (s *memStore) get(id uint) *domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id]
}

func (s *memStore) UpsertBatch(_ context.Context, items []*domain.Item) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range items {
		var existing *domain.Item
		for _, it := range s.items {
			if it.Repo == in.Repo && it.Number == in.Number {
				existing = it
				break
			}
		}
		if existing == nil {
			cp := *in
			cp.ID = s.nextID
			s.nextID++
			s.items[cp.ID] = &cp
			continue
		}
		existing.Title = in.Title
		existing.Body = in.Body
		existing.URL = in.URL
		existing.Author = in.Author
		existing.CreatedAt = in.CreatedAt
		existing.MergedAt = in.MergedAt
		existing.LinkedIssueNumber = in.LinkedIssueNumber
		existing.Extras = in.Extras
	}
	return nil
}

func (s *memStore) match(it *domain.Item, q domain.ItemQuery) bool {
	if len(q.Statuses) > 0 {
		ok := false
		for _, st := range q.Statuses {
			if it.EnrichmentStatus == st {
				ok = true
			}
		}
		if !ok {
			return false
		}
	}
	if q.Repo != "" && it.Repo != q.Repo {
		return false
	}
	if q.Platform != "" && it.Platform != q.Platform {
		return false
	}
	if q.Classified != nil && (it.ClassifiedAt != nil) != *q.Classified {
		return false
	}
	if q.Difficulty != "" && (it.Classification == nil || it.Classification.Difficulty != q.Difficulty) {
		return false
	}
	return true
}

func (s *memStore) Query(_ context.Context, q domain.ItemQuery) ([]*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Item
	for _, it := range s.items {
		if s.match(it, q) {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MergedAt.After(out[j].MergedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *memStore) Count(ctx context.Context, q domain.ItemQuery) (int64, error) {
	q.Limit = 0
	items, err := s.Query(ctx, q)
	return int64(len(items)), err
}

func (s *memStore) UpdateByID(_ context.Context, id uint, u domain.ItemUpdate) error {
	if s.updateErr != nil {
		if err := s.updateErr(id, u); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return common.NewError(common.ErrCodeNotFound, "item not found")
	}
	s.updates = append(s.updates, u)
	if u.EnrichmentStatus != "" {
		it.EnrichmentStatus = u.EnrichmentStatus
		it.EnrichmentAttemptedAt = u.EnrichmentAttemptedAt
		it.EnrichmentError = u.EnrichmentError
		it.Files, it.LinkedIssue, it.IssueComments = nil, nil, nil
		if u.Enrichment != nil {
			it.Files = u.Enrichment.Files
			it.LinkedIssue = u.Enrichment.LinkedIssue
			it.IssueComments = u.Enrichment.Comments
		}
	}
	if u.Classification != nil {
		it.Classification = u.Classification
		it.ClassifiedAt = u.ClassifiedAt
	}
	return nil
}

func (s *memStore) GetByKey(_ context.Context, repo string, number int) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.Repo == repo && it.Number == number {
			cp := *it
			return &cp, nil
		}
	}
	return nil, nil
}
