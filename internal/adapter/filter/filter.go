package filter

import (
	"time"

	"onboarding-pr-miner/internal/domain"
)

// ItemFilter 对 Phase 1 的列表结果做本地过滤
type ItemFilter struct {
	nowFunc func() time.Time
}

// NewItemFilter 创建新的过滤器实例
func NewItemFilter() *ItemFilter {
	return &ItemFilter{nowFunc: time.Now}
}

// FilterByMergedAt 过滤掉合并时间超过指定天数的条目. maxDaysOld <= 0 disables the filter.
func (f *ItemFilter) FilterByMergedAt(items []*domain.RawItem, maxDaysOld int) []*domain.RawItem {
	if maxDaysOld <= 0 {
		return items
	}

	maxAge := time.Duration(maxDaysOld) * 24 * time.Hour
	current := time.Now()
	if f != nil && f.nowFunc != nil {
		current = f.nowFunc()
	}

	filtered := make([]*domain.RawItem, 0, len(items))
	for _, item := range items {
		if current.Sub(item.MergedAt) <= maxAge {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
