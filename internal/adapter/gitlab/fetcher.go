package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"onboarding-pr-miner/internal/adapter/diffset"
	"onboarding-pr-miner/internal/adapter/ratelimit"
	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/domain"
	"onboarding-pr-miner/internal/issueref"
)

const (
	DefaultBaseURL = "https://gitlab.com/api/v4"

	pageSize     = 100
	maxNotePages = 5
)

// Options configures a Fetcher.
type Options struct {
	Token   string
	BaseURL string
	Sleep   common.SleepFunc
	Logger  *slog.Logger
}

// Fetcher implements port.Fetcher for GitLab merge requests.
type Fetcher struct {
	baseURL    string
	token      string
	httpClient *http.Client
	extractor  *issueref.Extractor
	logger     *slog.Logger
}

func NewFetcher(opts Options) *Fetcher {
	logger := opts.Logger
	if logger == nil {
		logger = common.DiscardLogger()
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rl := ratelimit.New(nil, ratelimit.GitLabWait, logger)
	rl.Sleep = opts.Sleep

	return &Fetcher{
		baseURL:    baseURL,
		token:      opts.Token,
		httpClient: &http.Client{Transport: rl},
		extractor:  issueref.GitLab(),
		logger:     logger.With("platform", domain.PlatformGitLab),
	}
}

func (f *Fetcher) Platform() domain.Platform {
	return domain.PlatformGitLab
}

func (f *Fetcher) ExtractIssueNumbers(text string) []int {
	return f.extractor.Extract(text)
}

type user struct {
	Username string `json:"username"`
}

type mergeRequest struct {
	ID           int        `json:"id"`
	IID          int        `json:"iid"`
	ProjectID    int        `json:"project_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	WebURL       string     `json:"web_url"`
	Author       user       `json:"author"`
	CreatedAt    time.Time  `json:"created_at"`
	MergedAt     *time.Time `json:"merged_at"`
	SHA          string     `json:"sha"`
	TargetBranch string     `json:"target_branch"`
}

type mergeRequestDiff struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	Diff        string `json:"diff"`
	NewFile     bool   `json:"new_file"`
	RenamedFile bool   `json:"renamed_file"`
	DeletedFile bool   `json:"deleted_file"`
}

type issue struct {
	IID            int        `json:"iid"`
	ProjectID      int        `json:"project_id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	State          string     `json:"state"`
	Labels         []string   `json:"labels"`
	WebURL         string     `json:"web_url"`
	Author         user       `json:"author"`
	UserNotesCount int        `json:"user_notes_count"`
	CreatedAt      time.Time  `json:"created_at"`
	ClosedAt       *time.Time `json:"closed_at"`
}

type note struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	Author    user      `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	System    bool      `json:"system"`
}

func projectPath(owner, repo string) string {
	return url.PathEscape(owner + "/" + repo)
}

// ListMerged uses GitLab's native state=merged filter. Pagination also stops
// when the X-Next-Page header is empty.
func (f *Fetcher) ListMerged(ctx context.Context, owner, repo string, maxPages int) ([]*domain.RawItem, error) {
	f.logger.InfoContext(ctx, "fetching merged merge requests", "repo", owner+"/"+repo, "max_pages", maxPages)
	path := fmt.Sprintf("/projects/%s/merge_requests", projectPath(owner, repo))

	var items []*domain.RawItem
	for page := 1; page <= maxPages; page++ {
		opts := &mergeRequestListOptions{
			State:       "merged",
			OrderBy:     "created_at",
			Sort:        "desc",
			ListOptions: ListOptions{PerPage: pageSize, Page: page},
		}

		var mrs []mergeRequest
		header, err := f.get(ctx, path, opts, &mrs)
		if err != nil {
			return nil, wrapError(fmt.Sprintf("list merge requests page %d", page), err)
		}
		if len(mrs) == 0 {
			break
		}

		for i := range mrs {
			mr := &mrs[i]
			if mr.MergedAt == nil {
				f.logger.DebugContext(ctx, "skipping merge request without merged_at", "iid", mr.IID)
				continue
			}
			items = append(items, toRawItem(mr))
		}

		if header.Get("X-Next-Page") == "" {
			f.logger.DebugContext(ctx, "reached last page", "page", page)
			break
		}
	}

	f.logger.InfoContext(ctx, "fetched merged merge requests", "repo", owner+"/"+repo, "count", len(items))
	return items, nil
}

// Enrich fetches diffs, the linked issue named in the description and that
// issue's user notes. Notes are read from the issue's own project, so
// cross-project references resolve.
func (f *Fetcher) Enrich(ctx context.Context, owner, repo string, number int, description string) (*domain.Enrichment, error) {
	files, err := f.fetchDiffs(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	enrichment := &domain.Enrichment{Files: files}

	issueNumber, ok := f.extractor.First(description)
	if !ok {
		return enrichment, nil
	}

	iss, err := f.fetchIssue(ctx, owner, repo, issueNumber)
	if err != nil {
		return nil, err
	}
	if iss == nil {
		f.logger.DebugContext(ctx, "linked issue not found", "repo", owner+"/"+repo, "issue", issueNumber)
		return enrichment, nil
	}
	enrichment.LinkedIssue = toIssue(iss)

	if iss.UserNotesCount == 0 {
		enrichment.Comments = []domain.Comment{}
		return enrichment, nil
	}

	project := projectPath(owner, repo)
	if iss.ProjectID > 0 {
		project = strconv.Itoa(iss.ProjectID)
	}
	comments, err := f.fetchNotes(ctx, project, iss.IID)
	if err != nil {
		return nil, err
	}
	enrichment.Comments = comments

	return enrichment, nil
}

func (f *Fetcher) fetchDiffs(ctx context.Context, owner, repo string, iid int) (*domain.FileSet, error) {
	path := fmt.Sprintf("/projects/%s/merge_requests/%d/diffs", projectPath(owner, repo), iid)

	var diffs []mergeRequestDiff
	if _, err := f.get(ctx, path, &ListOptions{PerPage: pageSize, Page: 1}, &diffs); err != nil {
		return nil, wrapError(fmt.Sprintf("list diffs of !%d", iid), err)
	}

	all := make([]domain.FileDiff, 0, len(diffs))
	for _, d := range diffs {
		all = append(all, toFileDiff(d))
	}

	set := diffset.Build(all, diffset.MaxFiles, diffset.MaxPatchLines)
	f.logger.DebugContext(ctx, "fetched diffs", "iid", iid,
		"included", set.Summary.FilesIncluded, "with_patches", set.Summary.FilesWithPatches, "total", set.Summary.TotalFiles)
	return set, nil
}

// fetchIssue returns nil, nil on 404.
func (f *Fetcher) fetchIssue(ctx context.Context, owner, repo string, iid int) (*issue, error) {
	path := fmt.Sprintf("/projects/%s/issues/%d", projectPath(owner, repo), iid)

	var iss issue
	if _, err := f.get(ctx, path, nil, &iss); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, wrapError(fmt.Sprintf("get issue #%d", iid), err)
	}
	return &iss, nil
}

func (f *Fetcher) fetchNotes(ctx context.Context, project string, iid int) ([]domain.Comment, error) {
	path := fmt.Sprintf("/projects/%s/issues/%d/notes", project, iid)

	comments := []domain.Comment{}
	for page := 1; page <= maxNotePages; page++ {
		var notes []note
		if _, err := f.get(ctx, path, &ListOptions{PerPage: pageSize, Page: page}, &notes); err != nil {
			return nil, wrapError(fmt.Sprintf("list notes of issue #%d", iid), err)
		}
		if len(notes) == 0 {
			break
		}
		for _, n := range notes {
			if n.System {
				continue
			}
			comments = append(comments, domain.Comment{
				ID:        n.ID,
				Author:    n.Author.Username,
				Body:      n.Body,
				CreatedAt: n.CreatedAt,
			})
		}
	}
	return comments, nil
}

func toRawItem(mr *mergeRequest) *domain.RawItem {
	return &domain.RawItem{
		Platform:  domain.PlatformGitLab,
		Number:    mr.IID,
		Title:     mr.Title,
		Body:      mr.Description,
		URL:       mr.WebURL,
		Author:    mr.Author.Username,
		CreatedAt: mr.CreatedAt,
		MergedAt:  *mr.MergedAt,
		Extras: map[string]any{
			"id":            mr.ID,
			"project_id":    mr.ProjectID,
			"sha":           mr.SHA,
			"target_branch": mr.TargetBranch,
		},
	}
}

func fileStatus(d mergeRequestDiff) string {
	switch {
	case d.NewFile:
		return "added"
	case d.DeletedFile:
		return "removed"
	case d.RenamedFile:
		return "renamed"
	default:
		return "modified"
	}
}

func toFileDiff(d mergeRequestDiff) domain.FileDiff {
	additions, deletions := diffset.CountLines(d.Diff)
	fd := domain.FileDiff{
		Filename:  d.NewPath,
		Status:    fileStatus(d),
		Additions: additions,
		Deletions: deletions,
		Changes:   additions + deletions,
		Patch:     d.Diff,
		Extras: map[string]any{
			"old_path":     d.OldPath,
			"new_path":     d.NewPath,
			"new_file":     d.NewFile,
			"renamed_file": d.RenamedFile,
			"deleted_file": d.DeletedFile,
		},
	}
	if d.RenamedFile {
		fd.PreviousFilename = d.OldPath
	}
	return fd
}

func toIssue(iss *issue) *domain.Issue {
	labels := iss.Labels
	if labels == nil {
		labels = []string{}
	}
	return &domain.Issue{
		Number:       iss.IID,
		Title:        iss.Title,
		Body:         iss.Description,
		State:        iss.State,
		Labels:       labels,
		URL:          iss.WebURL,
		Author:       iss.Author.Username,
		CommentCount: iss.UserNotesCount,
		CreatedAt:    iss.CreatedAt,
		ClosedAt:     iss.ClosedAt,
	}
}
