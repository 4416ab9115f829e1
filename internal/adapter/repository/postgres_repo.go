package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// basicColumns are the only columns a re-ingestion may overwrite.
var basicColumns = []string{
	"platform", "title", "body", "url", "author",
	"created_at", "merged_at", "linked_issue_number", "extras",
}

var (
	enrichmentColumns     = []string{"enrichment_status", "enrichment_attempted_at", "enrichment_error", "files", "linked_issue", "issue_comments"}
	classificationColumns = []string{"classification", "classified_at"}
)

// PostgresRepo 实现了 port.ItemStore 接口
type PostgresRepo struct {
	db *gorm.DB
}

// NewPostgresRepo wraps an already opened connection.
func NewPostgresRepo(db *gorm.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Open 连接数据库并自动迁移表结构
func Open(ctx context.Context, dsn string, opts ...common.Option) (*PostgresRepo, error) {
	// 1. 连接数据库
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "连接数据库失败", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "连接数据库失败", err)
	}
	retryOpts := append([]common.Option{common.WithMaxRetries(3), common.WithInitialDelay(time.Second)}, opts...)
	if err := common.Do(ctx, func() error { return sqlDB.PingContext(ctx) }, retryOpts...); err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "数据库不可达", err)
	}

	// 2. 自动迁移: pull_requests 表及 (repo, pr_number) 唯一索引
	if err := db.WithContext(ctx).AutoMigrate(&domain.Item{}); err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "数据库迁移失败", err)
	}

	return &PostgresRepo{db: db}, nil
}

// UpsertBatch inserts items in one statement. On a (repo, pr_number) conflict
// only basic columns are refreshed, so enrichment, classification and status
// survive re-ingestion.
func (r *PostgresRepo) UpsertBatch(ctx context.Context, items []*domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "repo"}, {Name: "pr_number"}},
			DoUpdates: clause.AssignmentColumns(basicColumns),
		}).
		Create(&items).Error
	if err != nil {
		return common.WrapError(common.ErrCodeDatabase, fmt.Sprintf("upsert %d items", len(items)), err)
	}
	return nil
}

// Query 按条件查询, 最新合并的排在前面
func (r *PostgresRepo) Query(ctx context.Context, q domain.ItemQuery) ([]*domain.Item, error) {
	tx := applyFilters(r.db.WithContext(ctx).Model(&domain.Item{}), q).
		Order("merged_at DESC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var items []*domain.Item
	if err := tx.Find(&items).Error; err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "query items", err)
	}
	return items, nil
}

// Count ignores q.Limit.
func (r *PostgresRepo) Count(ctx context.Context, q domain.ItemQuery) (int64, error) {
	var n int64
	if err := applyFilters(r.db.WithContext(ctx).Model(&domain.Item{}), q).Count(&n).Error; err != nil {
		return 0, common.WrapError(common.ErrCodeDatabase, "count items", err)
	}
	return n, nil
}

func applyFilters(tx *gorm.DB, q domain.ItemQuery) *gorm.DB {
	if len(q.Statuses) > 0 {
		tx = tx.Where("enrichment_status IN ?", q.Statuses)
	}
	if q.Repo != "" {
		tx = tx.Where("repo = ?", q.Repo)
	}
	if q.Platform != "" {
		tx = tx.Where("platform = ?", q.Platform)
	}
	if q.Classified != nil {
		if *q.Classified {
			tx = tx.Where("classified_at IS NOT NULL")
		} else {
			tx = tx.Where("classified_at IS NULL")
		}
	}
	if q.Difficulty != "" {
		tx = tx.Where("classification->>'difficulty' = ?", string(q.Difficulty))
	}
	return tx
}

// UpdateByID writes the column groups selected by u. Nil pointers in a
// selected group become NULL.
func (r *PostgresRepo) UpdateByID(ctx context.Context, id uint, u domain.ItemUpdate) error {
	var columns []string
	row := domain.Item{}

	if u.EnrichmentStatus != "" {
		columns = append(columns, enrichmentColumns...)
		row.EnrichmentStatus = u.EnrichmentStatus
		row.EnrichmentAttemptedAt = u.EnrichmentAttemptedAt
		row.EnrichmentError = u.EnrichmentError
		if e := u.Enrichment; e != nil {
			row.Files = e.Files
			row.LinkedIssue = e.LinkedIssue
			row.IssueComments = e.Comments
		}
	}
	if u.Classification != nil {
		columns = append(columns, classificationColumns...)
		row.Classification = u.Classification
		row.ClassifiedAt = u.ClassifiedAt
	}
	if len(columns) == 0 {
		return common.NewError(common.ErrCodeInvalidInput, "empty update")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Item{ID: id}).
		Select(columns).
		Updates(&row)
	if result.Error != nil {
		return common.WrapError(common.ErrCodeDatabase, fmt.Sprintf("update item %d", id), result.Error)
	}
	if result.RowsAffected == 0 {
		return common.NewError(common.ErrCodeNotFound, fmt.Sprintf("item %d not found", id))
	}
	return nil
}

// GetByKey 根据 (repo, number) 查找, 不存在时返回 nil, nil
func (r *PostgresRepo) GetByKey(ctx context.Context, repo string, number int) (*domain.Item, error) {
	var item domain.Item
	err := r.db.WithContext(ctx).
		Where("repo = ? AND pr_number = ?", repo, number).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, fmt.Sprintf("get %s#%d", repo, number), err)
	}
	return &item, nil
}

// Close 关闭底层连接池
func (r *PostgresRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return common.WrapError(common.ErrCodeDatabase, "get sql.DB", err)
	}
	return sqlDB.Close()
}
