package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Platform 标识代码托管平台
type Platform string

const (
	PlatformGitHub Platform = "github"
	PlatformGitLab Platform = "gitlab"
)

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	return p == PlatformGitHub || p == PlatformGitLab
}

// EnrichmentStatus tracks Phase 2 progress for one item.
type EnrichmentStatus string

const (
	StatusPending EnrichmentStatus = "pending"
	StatusSuccess EnrichmentStatus = "success"
	StatusFailed  EnrichmentStatus = "failed"
)

// CanTransitionTo reports whether moving from s to next is allowed.
// success is terminal; failed items may be retried.
func (s EnrichmentStatus) CanTransitionTo(next EnrichmentStatus) bool {
	switch s {
	case StatusPending, StatusFailed:
		return next == StatusSuccess || next == StatusFailed
	default:
		return false
	}
}

// Item 表示一个已合并的 PR (GitHub) 或 MR (GitLab)
type Item struct {
	ID       uint     `json:"id" gorm:"primaryKey"`
	Repo     string   `json:"repo" gorm:"not null;uniqueIndex:idx_items_repo_number;index"`
	Number   int      `json:"number" gorm:"column:pr_number;not null;uniqueIndex:idx_items_repo_number"`
	Platform Platform `json:"platform" gorm:"type:text;not null;default:github;index"`

	Title             string            `json:"title" gorm:"not null"`
	Body              string            `json:"body" gorm:"type:text"`
	URL               string            `json:"url"`
	Author            string            `json:"author"`
	CreatedAt         time.Time         `json:"created_at"`
	MergedAt          time.Time         `json:"merged_at" gorm:"not null;index"`
	LinkedIssueNumber *int              `json:"linked_issue_number,omitempty"`
	Extras            datatypes.JSONMap `json:"extras,omitempty" gorm:"type:jsonb"`

	// Phase 2
	Files                 *FileSet         `json:"files,omitempty" gorm:"type:jsonb;serializer:json"`
	LinkedIssue           *Issue           `json:"linked_issue,omitempty" gorm:"type:jsonb;serializer:json"`
	IssueComments         []Comment        `json:"issue_comments,omitempty" gorm:"type:jsonb;serializer:json"`
	EnrichmentStatus      EnrichmentStatus `json:"enrichment_status" gorm:"type:text;not null;default:pending;index"`
	EnrichmentAttemptedAt *time.Time       `json:"enrichment_attempted_at,omitempty"`
	EnrichmentError       *string          `json:"enrichment_error,omitempty" gorm:"type:text"`

	// Classification
	Classification *Classification `json:"classification,omitempty" gorm:"type:jsonb;serializer:json"`
	ClassifiedAt   *time.Time      `json:"classified_at,omitempty" gorm:"index"`
}

// TableName pins the table name.
func (Item) TableName() string {
	return "pull_requests"
}

// Enrichment returns the Phase 2 bundle, or nil when the item is not enriched.
func (i *Item) Enrichment() *Enrichment {
	if i.EnrichmentStatus != StatusSuccess {
		return nil
	}
	return &Enrichment{Files: i.Files, LinkedIssue: i.LinkedIssue, Comments: i.IssueComments}
}

// IsClassified reports whether a classification has been stored.
func (i *Item) IsClassified() bool {
	return i.ClassifiedAt != nil && i.Classification != nil
}

// RawItem is what a fetcher's listing returns, already normalized into the
// shared shape. Platform-only fields go to Extras.
type RawItem struct {
	Platform  Platform
	Number    int
	Title     string
	Body      string
	URL       string
	Author    string
	CreatedAt time.Time
	MergedAt  time.Time
	Extras    map[string]any
}

// ToItem converts a listing entry into a pending store record for repo.
func (r *RawItem) ToItem(repo string, linkedIssue *int) *Item {
	var extras datatypes.JSONMap
	if len(r.Extras) > 0 {
		extras = datatypes.JSONMap(r.Extras)
	}
	return &Item{
		Repo:              repo,
		Number:            r.Number,
		Platform:          r.Platform,
		Title:             r.Title,
		Body:              r.Body,
		URL:               r.URL,
		Author:            r.Author,
		CreatedAt:         r.CreatedAt,
		MergedAt:          r.MergedAt,
		LinkedIssueNumber: linkedIssue,
		Extras:            extras,
		EnrichmentStatus:  StatusPending,
	}
}

// FileDiff is one changed file with its (possibly truncated) patch.
type FileDiff struct {
	Filename         string         `json:"filename"`
	PreviousFilename string         `json:"previous_filename,omitempty"`
	Status           string         `json:"status"`
	Additions        int            `json:"additions"`
	Deletions        int            `json:"deletions"`
	Changes          int            `json:"changes"`
	Patch            string         `json:"patch"`
	PatchTruncated   bool           `json:"patch_truncated"`
	Extras           map[string]any `json:"extras,omitempty"`
}

// DiffSummary totals are computed over every changed file, including the ones
// left out of Files.
type DiffSummary struct {
	TotalFiles       int  `json:"total_files"`
	FilesWithPatches int  `json:"files_with_patches"`
	FilesIncluded    int  `json:"files_included"`
	TotalAdditions   int  `json:"total_additions"`
	TotalDeletions   int  `json:"total_deletions"`
	Truncated        bool `json:"truncated"`
}

type FileSet struct {
	Summary DiffSummary `json:"summary"`
	Files   []FileDiff  `json:"files"`
}

// Issue is a linked issue. Body is nil when the issue has no description.
type Issue struct {
	Number       int        `json:"number"`
	Title        string     `json:"title"`
	Body         *string    `json:"body"`
	State        string     `json:"state"`
	Labels       []string   `json:"labels,omitempty"`
	URL          string     `json:"url"`
	Author       string     `json:"author"`
	CommentCount int        `json:"comment_count"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

type Comment struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrichment is the result of Fetcher.Enrich.
type Enrichment struct {
	Files       *FileSet
	LinkedIssue *Issue
	Comments    []Comment
}

// ItemQuery selects items from the store. Zero values mean "no filter".
type ItemQuery struct {
	Statuses   []EnrichmentStatus
	Repo       string
	Platform   Platform
	Classified *bool
	Difficulty Difficulty
	Limit      int
}

// ItemUpdate is the payload of UpdateByID. A non-empty EnrichmentStatus writes
// the enrichment columns (error and bundle included, nil meaning NULL); a
// non-nil Classification writes the classification columns.
type ItemUpdate struct {
	EnrichmentStatus      EnrichmentStatus
	EnrichmentAttemptedAt *time.Time
	EnrichmentError       *string
	Enrichment            *Enrichment

	Classification *Classification
	ClassifiedAt   *time.Time
}

// EnrichmentStats counts items by enrichment status.
type EnrichmentStats struct {
	Total   int64 `json:"total"`
	Pending int64 `json:"pending"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

// ClassificationStats counts classified items by difficulty.
type ClassificationStats struct {
	TotalClassified int64 `json:"total_classified"`
	Trivial         int64 `json:"trivial"`
	Easy            int64 `json:"easy"`
	Medium          int64 `json:"medium"`
	Hard            int64 `json:"hard"`
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// String returns a pointer to s.
func String(s string) *string { return &s }
