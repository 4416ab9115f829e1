package classifier

import (
	"fmt"
	"strings"
	"time"

	"onboarding-pr-miner/internal/domain"
)

var (
	heavyRule = strings.Repeat("=", 80)
	lightRule = strings.Repeat("-", 80)
)

// BuildContext renders an item into the text block the model sees. The output
// depends only on the item, so the debug command shows exactly what is sent.
func BuildContext(item *domain.Item) string {
	var lines []string
	add := func(s ...string) { lines = append(lines, s...) }
	section := func(title string) { add(heavyRule, title, heavyRule) }

	section("PULL REQUEST METADATA")
	add(
		"Repository: "+item.Repo,
		fmt.Sprintf("PR Number: #%d", item.Number),
		"Title: "+item.Title,
		"Merged At: "+formatTime(item.MergedAt),
		"",
	)

	section("PR DESCRIPTION")
	if item.Body != "" {
		add(item.Body)
	} else {
		add("(No description provided)")
	}
	add("")

	section("CHANGED FILES AND DIFFS")
	if item.Files != nil && len(item.Files.Files) > 0 {
		add(fmt.Sprintf("Total files changed: %d", len(item.Files.Files)), "")
		for i, f := range item.Files.Files {
			add(
				fmt.Sprintf("File %d: %s", i+1, f.Filename),
				fmt.Sprintf("Status: %s (+%d -%d)", f.Status, f.Additions, f.Deletions),
			)
			if f.Patch != "" {
				add("```diff", f.Patch, "```")
			} else {
				add("(No diff available - likely binary or too large)")
			}
			add("")
		}
	} else {
		add("(No files information available)", "")
	}

	if issue := item.LinkedIssue; issue != nil {
		section("LINKED ISSUE")
		add(
			fmt.Sprintf("Issue Number: #%d", issue.Number),
			"Title: "+issue.Title,
			"State: "+issue.State,
			"",
			"Issue Body:",
		)
		if issue.Body != nil && *issue.Body != "" {
			add(*issue.Body)
		} else {
			add("(No issue description)")
		}
		add("")
	}

	if len(item.IssueComments) > 0 {
		section("ISSUE DISCUSSION")
		add(fmt.Sprintf("Total comments: %d", len(item.IssueComments)), "")
		for i, c := range item.IssueComments {
			add(
				fmt.Sprintf("Comment %d by %s at %s:", i+1, c.Author, formatTime(c.CreatedAt)),
				c.Body,
				"",
				lightRule,
			)
		}
	}

	return strings.Join(lines, "\n")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.UTC().Format(time.RFC3339)
}
