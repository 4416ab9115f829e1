// Package issueref finds issue numbers referenced by closing keywords in PR/MR descriptions.
package issueref

import (
	"regexp"
	"strconv"
)

var (
	// ClosingKeyword matches "fixes #12", "Closed #3", "resolve #9" and friends.
	// The verb may end a longer word ("Hotfixes #3").
	ClosingKeyword = regexp.MustCompile(`(?i)(?:fix|fixes|fixed|close|closes|closed|resolve|resolves|resolved)\s+#(\d+)`)
	// GitLabIssueURL matches full GitLab issue links such as https://gitlab.com/g/p/-/issues/42.
	GitLabIssueURL = regexp.MustCompile(`(?i)https://\S+/-/issues/(\d+)`)
)

// Extractor pulls issue numbers out of free text using a fixed pattern set.
// Each pattern must have the number as its first capture group.
type Extractor struct {
	patterns []*regexp.Regexp
}

func New(patterns ...*regexp.Regexp) *Extractor {
	return &Extractor{patterns: patterns}
}

// GitHub returns the extractor used for GitHub PR bodies.
func GitHub() *Extractor {
	return New(ClosingKeyword)
}

// GitLab returns the extractor used for GitLab MR descriptions.
func GitLab() *Extractor {
	return New(ClosingKeyword, GitLabIssueURL)
}

// Extract returns referenced issue numbers, de-duplicated. Matches are
// grouped by pattern: every closing-keyword reference comes before any issue
// URL, each group in text order. It never returns nil.
func (e *Extractor) Extract(text string) []int {
	result := []int{}
	if text == "" {
		return result
	}

	seen := make(map[int]struct{})
	for _, re := range e.patterns {
		for _, sub := range re.FindAllStringSubmatch(text, -1) {
			if len(sub) < 2 {
				continue
			}
			n, err := strconv.Atoi(sub[1])
			if err != nil {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			result = append(result, n)
		}
	}
	return result
}

// First returns the first referenced issue number, if any.
func (e *Extractor) First(text string) (int, bool) {
	nums := e.Extract(text)
	if len(nums) == 0 {
		return 0, false
	}
	return nums[0], true
}
