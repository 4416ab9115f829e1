package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"onboarding-pr-miner/internal/common"
	"onboarding-pr-miner/internal/config"
	"onboarding-pr-miner/internal/domain"
	"onboarding-pr-miner/internal/output"
	"onboarding-pr-miner/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore 模拟 ItemStore
type MockStore struct {
	mock.Mock
	closed int
}

func (m *MockStore) Close() error {
	m.closed++
	return nil
}

func (m *MockStore) UpsertBatch(ctx context.Context, items []*domain.Item) error {
	return m.Called(ctx, items).Error(0)
}

func (m *MockStore) Query(ctx context.Context, q domain.ItemQuery) ([]*domain.Item, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]*domain.Item)
	return items, args.Error(1)
}

func (m *MockStore) UpdateByID(ctx context.Context, id uint, u domain.ItemUpdate) error {
	return m.Called(ctx, id, u).Error(0)
}

func (m *MockStore) GetByKey(ctx context.Context, repo string, number int) (*domain.Item, error) {
	args := m.Called(ctx, repo, number)
	item, _ := args.Get(0).(*domain.Item)
	return item, args.Error(1)
}

func (m *MockStore) Count(ctx context.Context, q domain.ItemQuery) (int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(int64), args.Error(1)
}

// testEnv isolates the environment and working directory.
func testEnv(t *testing.T, env map[string]string) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, name := range []string{
		"DATABASE_URL", "GITHUB_TOKEN", "GITLAB_TOKEN", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
		"GEMINI_API_KEY", "FEISHU_WEBHOOK_URL", "LOG_LEVEL", "MINER_LLM_PROVIDER", "MINER_DATABASE_URL",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

type harness struct {
	app    *app
	store  *MockStore
	out    *bytes.Buffer
	errOut *bytes.Buffer
	opened int
}

func newHarness() *harness {
	h := &harness{store: new(MockStore), out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	h.app = newApp(&output.UI{Out: h.out, ErrOut: h.errOut})
	h.app.openStore = func(context.Context, *config.Config) (port.ItemStore, error) {
		h.opened++
		return h.store, nil
	}
	return h
}

func (h *harness) run(args ...string) error {
	root := h.app.rootCmd()
	root.SetOut(h.out)
	root.SetErr(h.errOut)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestCommands_Validation(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		args       []string
		expectCode string
		expectMsg  string
	}{
		{
			name:      "fetch flags are mutually exclusive",
			env:       map[string]string{"DATABASE_URL": "postgres://x"},
			args:      []string{"fetch", "acme/widgets", "--no-enrich", "--enrich-only"},
			expectMsg: "none of the others can be",
		},
		{
			name:       "fetch needs a repository",
			env:        map[string]string{"DATABASE_URL": "postgres://x"},
			args:       []string{"fetch"},
			expectCode: common.ErrCodeInvalidInput,
		},
		{
			name:       "fetch rejects a malformed repository",
			env:        map[string]string{"DATABASE_URL": "postgres://x"},
			args:       []string{"fetch", "not-a-repo"},
			expectCode: common.ErrCodeInvalidInput,
		},
		{
			name:       "fetch needs a database",
			args:       []string{"fetch", "acme/widgets"},
			expectCode: common.ErrCodeConfig,
			expectMsg:  "DATABASE_URL",
		},
		{
			name:       "classify needs an API key",
			env:        map[string]string{"DATABASE_URL": "postgres://x"},
			args:       []string{"classify"},
			expectCode: common.ErrCodeConfig,
			expectMsg:  "no API key",
		},
		{
			name:       "unknown provider",
			env:        map[string]string{"DATABASE_URL": "postgres://x", "MINER_LLM_PROVIDER": "cohere"},
			args:       []string{"stats"},
			expectCode: common.ErrCodeConfig,
		},
		{
			name:      "too many arguments",
			env:       map[string]string{"DATABASE_URL": "postgres://x"},
			args:      []string{"stats", "a/b", "c/d"},
			expectMsg: "accepts at most 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testEnv(t, tt.env)
			h := newHarness()

			err := h.run(tt.args...)

			require.Error(t, err)
			if tt.expectCode != "" {
				assert.Equal(t, tt.expectCode, common.CodeOf(err))
			}
			if tt.expectMsg != "" {
				assert.Contains(t, err.Error(), tt.expectMsg)
			}
			assert.Zero(t, h.opened)
		})
	}
}

func TestStatsCommand(t *testing.T) {
	testEnv(t, map[string]string{"DATABASE_URL": "postgres://x"})
	h := newHarness()
	h.store.On("Count", mock.Anything, mock.MatchedBy(func(q domain.ItemQuery) bool {
		return q.Repo == "acme/widgets"
	})).Return(int64(0), nil)

	err := h.run("stats", "https://github.com/acme/widgets")

	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Enrichment status (acme/widgets)")
	assert.Contains(t, h.out.String(), "no classified items yet")
	assert.Equal(t, 1, h.opened)
	assert.Equal(t, 1, h.store.closed)
}

func TestFetchCommand_EnrichOnly(t *testing.T) {
	testEnv(t, map[string]string{"DATABASE_URL": "postgres://x"})
	h := newHarness()
	h.store.On("Query", mock.Anything, mock.MatchedBy(func(q domain.ItemQuery) bool {
		return q.Repo == "" && len(q.Statuses) == 2 && q.Limit == 10000
	})).Return([]*domain.Item{}, nil).Once()
	h.store.On("Count", mock.Anything, mock.Anything).Return(int64(0), nil)

	err := h.run("fetch", "--enrich-only")

	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "Enrichment: 0 processed")
	assert.Equal(t, 1, h.store.closed)
	h.store.AssertExpectations(t)
}

func TestFetchCommand_LimitFromConfig(t *testing.T) {
	testEnv(t, map[string]string{"DATABASE_URL": "postgres://x", "MINER_PIPELINE_LIMIT": "150"})
	h := newHarness()

	fetcher := &stubFetcher{}
	h.app.factory = func(*config.Config, *slog.Logger) port.FetcherFactory {
		return func(domain.Platform) (port.Fetcher, error) { return fetcher, nil }
	}
	h.store.On("UpsertBatch", mock.Anything, mock.Anything).Return(nil)
	h.store.On("Count", mock.Anything, mock.Anything).Return(int64(0), nil)

	err := h.run("fetch", "acme/widgets", "--no-enrich")

	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.maxPages)
	assert.Equal(t, 1, h.store.closed)
	assert.Contains(t, h.out.String(), "Indexed 0 items")
	h.store.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

type stubFetcher struct {
	maxPages int
}

func (f *stubFetcher) Platform() domain.Platform { return domain.PlatformGitHub }

func (f *stubFetcher) ListMerged(_ context.Context, _, _ string, maxPages int) ([]*domain.RawItem, error) {
	f.maxPages = maxPages
	return nil, nil
}

func (f *stubFetcher) Enrich(context.Context, string, string, int, string) (*domain.Enrichment, error) {
	return &domain.Enrichment{}, nil
}

func (f *stubFetcher) ExtractIssueNumbers(string) []int { return nil }

func TestFetcherFactory(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Config
		platform   domain.Platform
		expectCode string
	}{
		{name: "github without token", platform: domain.PlatformGitHub, expectCode: common.ErrCodeConfig},
		{name: "github", cfg: config.Config{GitHub: config.GitHubConfig{Token: "ghp"}}, platform: domain.PlatformGitHub},
		{name: "gitlab without token", platform: domain.PlatformGitLab, expectCode: common.ErrCodeConfig},
		{name: "gitlab", cfg: config.Config{GitLab: config.GitLabConfig{Token: "glpat"}}, platform: domain.PlatformGitLab},
		{name: "unknown platform", platform: "bitbucket", expectCode: common.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			f, err := fetcherFactory(&cfg, common.DiscardLogger())(tt.platform)

			if tt.expectCode != "" {
				assert.Equal(t, tt.expectCode, common.CodeOf(err))
				assert.Nil(t, f)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.platform, f.Platform())
		})
	}
}

func TestNewNotifier(t *testing.T) {
	a := newApp(output.New())
	a.cfg = &config.Config{}
	assert.Nil(t, a.newNotifier())

	a.cfg.Feishu.WebhookURL = "https://open.feishu.cn/hook/x"
	assert.NotNil(t, a.newNotifier())
}
