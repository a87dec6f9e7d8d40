package workflow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/codemend/codemend/pkg/diagnostics"
)

var (
	titleCaser = cases.Title(language.English)

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7c3aed"))

	styleHeading = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3b82f6"))

	styleSuccess = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10b981"))

	styleWarning = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f59e0b"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ef4444"))

	styleMuted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ca3af"))
)

// summaryLine condenses a report into one sentence for logs and
// notifications.
func summaryLine(r *Report) string {
	fixed := r.InitialIssues - r.FinalIssues
	if fixed < 0 {
		fixed = 0
	}
	return fmt.Sprintf("%s: fixed %d of %d issues in %d iterations",
		titleCaser.String(r.State.String()), fixed, r.InitialIssues, len(r.Iterations))
}

// Render formats a report for the terminal.
func (r *Report) Render() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("codemend run"))
	b.WriteString("\n\n")

	b.WriteString(styleHeading.Render(titleCaser.String("result")))
	b.WriteString("\n")
	b.WriteString("  " + stateStyle(r.State).Render(titleCaser.String(r.State.String())))
	fixed := r.InitialIssues - r.FinalIssues
	if fixed < 0 {
		fixed = 0
	}
	fmt.Fprintf(&b, "  %s\n", styleMuted.Render(
		fmt.Sprintf("(%d of %d issues fixed in %s)", fixed, r.InitialIssues, r.Elapsed.Round(time.Millisecond))))

	if len(r.Iterations) > 0 {
		b.WriteString("\n")
		b.WriteString(styleHeading.Render(titleCaser.String("iterations")))
		b.WriteString("\n")
		for _, it := range r.Iterations {
			after := "?"
			if it.IssuesAfter >= 0 {
				after = fmt.Sprintf("%d", it.IssuesAfter)
			}
			fmt.Fprintf(&b, "  #%d  %d -> %s issues, %d clusters, %s\n",
				it.Index, it.IssuesBefore, after, it.Clusters, it.Elapsed.Round(time.Millisecond))
		}
	}

	fixedFiles := filesWithIssues(r.Fixed)
	if len(fixedFiles) > 0 {
		b.WriteString("\n")
		b.WriteString(styleHeading.Render(titleCaser.String("fixed issues")))
		b.WriteString("\n")
		for _, file := range fixedFiles {
			fmt.Fprintf(&b, "  %s\n", file)
			for _, issue := range r.Fixed[file] {
				fmt.Fprintf(&b, "    %s\n", styleSuccess.Render(
					fmt.Sprintf("line %d [%s] %s", issue.Line, issue.Code, issue.Message)))
			}
		}
	}

	remaining := filesWithIssues(r.Remaining)
	if len(remaining) > 0 {
		b.WriteString("\n")
		b.WriteString(styleHeading.Render(titleCaser.String("remaining issues")))
		b.WriteString("\n")
		for _, file := range remaining {
			fmt.Fprintf(&b, "  %s\n", file)
			for _, issue := range r.Remaining[file] {
				fmt.Fprintf(&b, "    %s\n", styleWarning.Render(
					fmt.Sprintf("line %d [%s] %s", issue.Line, issue.Code, issue.Message)))
			}
		}
	}

	return b.String()
}

func stateStyle(s State) lipgloss.Style {
	switch s {
	case StateConverged:
		return styleSuccess
	case StateStalled, StateAborted:
		return styleError
	default:
		return styleWarning
	}
}

func filesWithIssues(byFile map[string][]diagnostics.Issue) []string {
	files := make([]string, 0, len(byFile))
	for file, issues := range byFile {
		if len(issues) > 0 {
			files = append(files, file)
		}
	}
	sort.Strings(files)
	return files
}
