package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"onboarding-pr-miner/internal/adapter/diffset"
	"onboarding-pr-miner/internal/adapter/ratelimit"
	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/domain"
	"onboarding-pr-miner/internal/issueref"

	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

const (
	pageSize        = 100
	maxCommentPages = 5
)

// Options configures a Fetcher.
type Options struct {
	Token string
	// BaseURL overrides https://api.github.com/ (GitHub Enterprise, tests).
	BaseURL string
	Sleep   common.SleepFunc
	Logger  *slog.Logger
}

// Fetcher 实现了 port.Fetcher 接口 (GitHub pull requests)
type Fetcher struct {
	client    *github.Client
	extractor *issueref.Extractor
	sleep     common.SleepFunc
	logger    *slog.Logger
}

// NewFetcher 初始化 GitHub 客户端
// Requests go through oauth2 (when a token is set) and then the rate-limit transport.
func NewFetcher(opts Options) (*Fetcher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = common.DiscardLogger()
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = common.Sleep
	}

	rl := ratelimit.New(nil, ratelimit.GitHubWait, logger)
	rl.Sleep = sleep

	var transport http.RoundTripper = rl
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}),
			Base:   rl,
		}
	}
	client := github.NewClient(&http.Client{Transport: transport})

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, common.WrapError(common.ErrCodeConfig, "invalid GitHub base URL", err)
		}
		client.BaseURL = u
	}

	return &Fetcher{
		client:    client,
		extractor: issueref.GitHub(),
		sleep:     sleep,
		logger:    logger.With("platform", domain.PlatformGitHub),
	}, nil
}

func (f *Fetcher) Platform() domain.Platform {
	return domain.PlatformGitHub
}

func (f *Fetcher) ExtractIssueNumbers(text string) []int {
	return f.extractor.Extract(text)
}

// ListMerged 获取已合并的 PR 列表
// GitHub has no merged-only filter, so closed PRs are listed and those without
// merged_at are dropped.
func (f *Fetcher) ListMerged(ctx context.Context, owner, repo string, maxPages int) ([]*domain.RawItem, error) {
	f.logger.InfoContext(ctx, "fetching merged pull requests", "repo", owner+"/"+repo, "max_pages", maxPages)

	var items []*domain.RawItem
	for page := 1; page <= maxPages; page++ {
		opts := &github.PullRequestListOptions{
			State:     "closed",
			Sort:      "created",
			Direction: "desc",
			ListOptions: github.ListOptions{
				PerPage: pageSize,
				Page:    page,
			},
		}

		var prs []*github.PullRequest
		err := f.call(ctx, fmt.Sprintf("list pull requests page %d", page), func() error {
			var apiErr error
			prs, _, apiErr = f.client.PullRequests.List(ctx, owner, repo, opts)
			return apiErr
		})
		if err != nil {
			return nil, err
		}
		if len(prs) == 0 {
			f.logger.DebugContext(ctx, "no more pull requests", "page", page)
			break
		}

		merged := 0
		for _, pr := range prs {
			if pr.MergedAt == nil {
				continue
			}
			items = append(items, toRawItem(pr))
			merged++
		}
		f.logger.DebugContext(ctx, "fetched page", "page", page, "closed", len(prs), "merged", merged)
	}

	f.logger.InfoContext(ctx, "fetched merged pull requests", "repo", owner+"/"+repo, "count", len(items))
	return items, nil
}

// Enrich 获取 PR 的文件 diff、关联 issue 及其评论
func (f *Fetcher) Enrich(ctx context.Context, owner, repo string, number int, description string) (*domain.Enrichment, error) {
	files, err := f.fetchFiles(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	enrichment := &domain.Enrichment{Files: files}

	issueNumber, ok := f.extractor.First(description)
	if !ok {
		return enrichment, nil
	}

	issue, err := f.fetchIssue(ctx, owner, repo, issueNumber)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		f.logger.DebugContext(ctx, "linked issue not found", "repo", owner+"/"+repo, "issue", issueNumber)
		return enrichment, nil
	}
	enrichment.LinkedIssue = issue

	comments, err := f.fetchComments(ctx, owner, repo, issueNumber)
	if err != nil {
		return nil, err
	}
	enrichment.Comments = comments

	return enrichment, nil
}

func (f *Fetcher) fetchFiles(ctx context.Context, owner, repo string, number int) (*domain.FileSet, error) {
	var commitFiles []*github.CommitFile
	err := f.call(ctx, fmt.Sprintf("list files of #%d", number), func() error {
		var apiErr error
		commitFiles, _, apiErr = f.client.PullRequests.ListFiles(ctx, owner, repo, number,
			&github.ListOptions{PerPage: pageSize, Page: 1})
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	all := make([]domain.FileDiff, 0, len(commitFiles))
	for _, cf := range commitFiles {
		all = append(all, domain.FileDiff{
			Filename:         cf.GetFilename(),
			PreviousFilename: cf.GetPreviousFilename(),
			Status:           cf.GetStatus(),
			Additions:        cf.GetAdditions(),
			Deletions:        cf.GetDeletions(),
			Changes:          cf.GetChanges(),
			Patch:            cf.GetPatch(),
		})
	}

	set := diffset.Build(all, diffset.MaxFiles, diffset.MaxPatchLines)
	f.logger.DebugContext(ctx, "fetched files", "number", number,
		"included", set.Summary.FilesIncluded, "with_patches", set.Summary.FilesWithPatches, "total", set.Summary.TotalFiles)
	return set, nil
}

// fetchIssue returns nil, nil when the issue does not exist.
func (f *Fetcher) fetchIssue(ctx context.Context, owner, repo string, number int) (*domain.Issue, error) {
	var issue *github.Issue
	err := f.call(ctx, fmt.Sprintf("get issue #%d", number), func() error {
		var apiErr error
		issue, _, apiErr = f.client.Issues.Get(ctx, owner, repo, number)
		return apiErr
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toIssue(issue), nil
}

func (f *Fetcher) fetchComments(ctx context.Context, owner, repo string, number int) ([]domain.Comment, error) {
	comments := []domain.Comment{}
	for page := 1; page <= maxCommentPages; page++ {
		opts := &github.IssueListCommentsOptions{
			ListOptions: github.ListOptions{PerPage: pageSize, Page: page},
		}

		var batch []*github.IssueComment
		err := f.call(ctx, fmt.Sprintf("list comments of #%d", number), func() error {
			var apiErr error
			batch, _, apiErr = f.client.Issues.ListComments(ctx, owner, repo, number, opts)
			return apiErr
		})
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, c := range batch {
			comments = append(comments, domain.Comment{
				ID:        c.GetID(),
				Author:    c.GetUser().GetLogin(),
				Body:      c.GetBody(),
				CreatedAt: c.GetCreatedAt().Time,
			})
		}
	}
	return comments, nil
}

// call runs fn, waiting out go-github's own rate-limit errors. 429s never get
// here because the transport absorbs them; go-github still reports an
// exhausted quota (403 with X-RateLimit-Remaining: 0) as *RateLimitError.
func (f *Fetcher) call(ctx context.Context, op string, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}

		wait, limited := rateLimitWait(err, time.Now())
		if !limited {
			return wrapError(op, err)
		}
		f.logger.WarnContext(ctx, "⏳ GitHub quota exhausted, waiting", "op", op, "wait", wait.String())
		if err := f.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func rateLimitWait(err error, now time.Time) (time.Duration, bool) {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		wait := rle.Rate.Reset.Time.Sub(now) + ratelimit.ResetBuffer
		return max(wait, ratelimit.MinWait), true
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		wait := ratelimit.MinWait
		if abuse.RetryAfter != nil {
			wait = max(*abuse.RetryAfter, ratelimit.MinWait)
		}
		return wait, true
	}
	return 0, false
}

func wrapError(op string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return common.WrapError(common.ErrCodeUnauthorized, "GitHub "+op, err)
		}
	}
	return common.WrapError(common.ErrCodeGitHubAPI, "GitHub "+op, err)
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

func toRawItem(pr *github.PullRequest) *domain.RawItem {
	return &domain.RawItem{
		Platform:  domain.PlatformGitHub,
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		URL:       pr.GetHTMLURL(),
		Author:    pr.GetUser().GetLogin(),
		CreatedAt: pr.GetCreatedAt().Time,
		MergedAt:  pr.GetMergedAt().Time,
		Extras: map[string]any{
			"id":       pr.GetID(),
			"base_ref": pr.GetBase().GetRef(),
		},
	}
}

func toIssue(issue *github.Issue) *domain.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	var closedAt *time.Time
	if issue.ClosedAt != nil {
		t := issue.ClosedAt.Time
		closedAt = &t
	}

	return &domain.Issue{
		Number:       issue.GetNumber(),
		Title:        issue.GetTitle(),
		Body:         issue.Body,
		State:        issue.GetState(),
		Labels:       labels,
		URL:          issue.GetHTMLURL(),
		Author:       issue.GetUser().GetLogin(),
		CommentCount: issue.GetComments(),
		CreatedAt:    issue.GetCreatedAt().Time,
		ClosedAt:     closedAt,
	}
}
