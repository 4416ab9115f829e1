// Package diffset trims changed-file lists and patches to what fits in an LLM prompt.
package diffset

import (
	"fmt"
	"strings"

	"onboarding-pr-miner/internal/domain"
)

const (
	MaxFiles      = 10
	MaxPatchLines = 100
)

// TruncatePatch keeps the first maxLines lines of patch and appends a marker
// line with the number of dropped lines.
func TruncatePatch(patch string, maxLines int) (string, bool) {
	lines := strings.Split(patch, "\n")
	if len(lines) <= maxLines {
		return patch, false
	}
	remaining := len(lines) - maxLines
	return strings.Join(lines[:maxLines], "\n") + fmt.Sprintf("\n... [TRUNCATED: %d more lines]", remaining), true
}

// Build keeps files that have a patch, caps the list at maxFiles and truncates
// each patch to maxLines. Summary totals cover every file in all.
func Build(all []domain.FileDiff, maxFiles, maxLines int) *domain.FileSet {
	summary := domain.DiffSummary{TotalFiles: len(all)}

	withPatch := make([]domain.FileDiff, 0, len(all))
	for _, f := range all {
		summary.TotalAdditions += f.Additions
		summary.TotalDeletions += f.Deletions
		if f.Patch != "" {
			withPatch = append(withPatch, f)
		}
	}
	summary.FilesWithPatches = len(withPatch)

	included := withPatch
	if len(included) > maxFiles {
		included = included[:maxFiles]
	}
	files := make([]domain.FileDiff, len(included))
	for i, f := range included {
		f.Patch, f.PatchTruncated = TruncatePatch(f.Patch, maxLines)
		files[i] = f
	}

	summary.FilesIncluded = len(files)
	summary.Truncated = len(withPatch) > len(files)

	return &domain.FileSet{Summary: summary, Files: files}
}

// CountLines counts added and removed lines of a unified diff, skipping the
// "+++"/"---" file headers.
func CountLines(patch string) (additions, deletions int) {
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}
