package oracle

import (
	"fmt"
	"strings"

	"github.com/codemend/codemend/pkg/diagnostics"
)

// Version is one fixed variant of a file, described to the merge prompt by
// the issues it addressed.
type Version struct {
	Issues []diagnostics.Issue
}

// FixPrompt builds the repair instruction for a cluster of issues in one
// file. excerpt, when non-empty, carries the surrounding source lines so
// the oracle sees local context without re-reading the whole file.
func FixPrompt(file string, issues []diagnostics.Issue, excerpt string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Fix the following %d linting issues in %s:\n\n", len(issues), file)
	for _, issue := range issues {
		fmt.Fprintf(&b, "Line %d: [%s] %s\n", issue.Line, issue.Code, issue.Message)
	}

	if excerpt != "" {
		b.WriteString("\nRelevant context:\n")
		b.WriteString(excerpt)
		if !strings.HasSuffix(excerpt, "\n") {
			b.WriteString("\n")
		}
	}

	b.WriteString(`
Requirements:
- Fix ONLY the issues listed above
- Maintain code style and functionality
- Make minimal changes
- Consider the full file context when making fixes`)

	return b.String()
}

// MergePrompt builds the instruction for reconciling fixed versions of file
// into a single result written back in place.
func MergePrompt(file string, versions []Version) string {
	var b strings.Builder

	b.WriteString("You are tasked with merging multiple fixes for a file that has various linting issues.\n\n")
	fmt.Fprintf(&b, "The file %s had multiple linting issues that were fixed in parallel by different instances.\n", file)
	b.WriteString("Your job is to intelligently merge all these fixes into a single, coherent file.\n\n")
	b.WriteString(`IMPORTANT REQUIREMENTS:
1. The final merged file must include ALL fixes from ALL versions
2. Resolve any conflicts by choosing the most complete fix
3. Ensure no fixes are lost in the merge
4. Maintain code functionality and style
5. The merged result should pass all linting checks

Here are the issues that were fixed in each version:
`)

	for i, version := range versions {
		fmt.Fprintf(&b, "\nVersion %d fixed these issues:\n", i+1)
		for _, issue := range version.Issues {
			fmt.Fprintf(&b, "  - Line %d: [%s] %s\n", issue.Line, issue.Code, issue.Message)
		}
	}

	fmt.Fprintf(&b, "\nThe current file is at %s.\n\n", file)
	fmt.Fprintf(&b, `MERGE STRATEGY:
1. Read the current file to understand the base state
2. Analyze each fix to understand what was changed
3. Apply all fixes, ensuring no fix overwrites another
4. If fixes conflict, choose the most comprehensive solution
5. Write the final merged result back to %s

Proceed with the merge.`, file)

	return b.String()
}

// ContextExcerpt extracts the source lines around each issue, three lines
// either side, with 1-based line numbers. Overlapping windows collapse.
func ContextExcerpt(content string, issues []diagnostics.Issue) string {
	const margin = 3

	lines := strings.Split(content, "\n")
	include := make(map[int]bool)
	for _, issue := range issues {
		for l := issue.Line - margin; l <= issue.Line+margin; l++ {
			if l >= 1 && l <= len(lines) {
				include[l] = true
			}
		}
	}
	if len(include) == 0 {
		return ""
	}

	var b strings.Builder
	previous := 0
	for l := 1; l <= len(lines); l++ {
		if !include[l] {
			continue
		}
		if previous != 0 && l != previous+1 {
			b.WriteString("...\n")
		}
		fmt.Fprintf(&b, "%4d | %s\n", l, lines[l-1])
		previous = l
	}
	return b.String()
}
