// Package output renders command results for the terminal.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"onboarding-pr-miner/internal/domain"
)

// UI writes colored messages and tables. Warnings and errors go to ErrOut.
type UI struct {
	Out    io.Writer
	ErrOut io.Writer
}

// New creates a UI on stdout/stderr.
func New() *UI {
	return &UI{Out: os.Stdout, ErrOut: os.Stderr}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	bold          = color.New(color.Bold).SprintFunc()
)

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

// Heading prints a bold section title.
func (u *UI) Heading(title string) {
	fmt.Fprintf(u.Out, "\n%s\n", bold(title))
}

// StatusColor colors an enrichment status.
func StatusColor(status domain.EnrichmentStatus) string {
	switch status {
	case domain.StatusSuccess:
		return green(string(status))
	case domain.StatusPending:
		return yellow(string(status))
	case domain.StatusFailed:
		return red(string(status))
	default:
		return string(status)
	}
}

// DifficultyColor colors a difficulty label, easiest in green.
func DifficultyColor(d domain.Difficulty) string {
	switch d {
	case domain.DifficultyTrivial, domain.DifficultyEasy:
		return green(string(d))
	case domain.DifficultyMedium:
		return yellow(string(d))
	case domain.DifficultyHard:
		return red(string(d))
	default:
		return cyan(string(d))
	}
}

// Table creates a borderless left-aligned table.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

func percent(n, total int64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(n)*100/float64(total))
}

// EnrichmentStats prints status counts. scope is a repository or "all".
func (u *UI) EnrichmentStats(scope string, s domain.EnrichmentStats) {
	u.Heading(fmt.Sprintf("Enrichment status (%s)", scope))
	table := u.Table([]string{"STATUS", "COUNT", "SHARE"})
	for _, row := range []struct {
		status domain.EnrichmentStatus
		n      int64
	}{
		{domain.StatusPending, s.Pending},
		{domain.StatusSuccess, s.Success},
		{domain.StatusFailed, s.Failed},
	} {
		_ = table.Append([]string{StatusColor(row.status), fmt.Sprint(row.n), percent(row.n, s.Total)})
	}
	_ = table.Append([]string{bold("total"), fmt.Sprint(s.Total), ""})
	_ = table.Render()
}

// ClassificationStats prints difficulty counts.
func (u *UI) ClassificationStats(scope string, s domain.ClassificationStats) {
	u.Heading(fmt.Sprintf("Classification (%s)", scope))
	if s.TotalClassified == 0 {
		u.Info("no classified items yet")
		return
	}
	table := u.Table([]string{"DIFFICULTY", "COUNT", "SHARE"})
	for _, row := range []struct {
		d domain.Difficulty
		n int64
	}{
		{domain.DifficultyTrivial, s.Trivial},
		{domain.DifficultyEasy, s.Easy},
		{domain.DifficultyMedium, s.Medium},
		{domain.DifficultyHard, s.Hard},
	} {
		_ = table.Append([]string{DifficultyColor(row.d), fmt.Sprint(row.n), percent(row.n, s.TotalClassified)})
	}
	_ = table.Append([]string{bold("total"), fmt.Sprint(s.TotalClassified), ""})
	_ = table.Render()
}

// Counts prints a processed/succeeded/failed line.
func (u *UI) Counts(label string, total, success, failed int) {
	msg := fmt.Sprintf("%s: %d processed, %s succeeded, %s failed",
		label, total, green(fmt.Sprint(success)), red(fmt.Sprint(failed)))
	if failed > 0 {
		u.Warning("%s", msg)
		return
	}
	u.Success("%s", msg)
}
