package port

import (
	"context"
	"testing"

	"onboarding-pr-miner/internal/domain"

	"github.com/stretchr/testify/assert"
)

type stubFetcher struct{ platform domain.Platform }

func (s stubFetcher) Platform() domain.Platform { return s.platform }
func (stubFetcher) ListMerged(context.Context, string, string, int) ([]*domain.RawItem, error) {
	return nil, nil
}
func (stubFetcher) Enrich(context.Context, string, string, int, string) (*domain.Enrichment, error) {
	return &domain.Enrichment{}, nil
}
func (stubFetcher) ExtractIssueNumbers(string) []int { return []int{} }

type echoLLM struct{}

func (echoLLM) Send(_ context.Context, prompt string) (string, error) { return prompt, nil }

var (
	_ Fetcher = stubFetcher{}
	_ LLM     = echoLLM{}
)

func TestFetcherFactory(t *testing.T) {
	var factory FetcherFactory = func(p domain.Platform) (Fetcher, error) {
		return stubFetcher{platform: p}, nil
	}

	f, err := factory(domain.PlatformGitLab)

	assert.NoError(t, err)
	assert.Equal(t, domain.PlatformGitLab, f.Platform())
}
