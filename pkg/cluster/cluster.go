// Package cluster groups related diagnostics into fix units. Clustering is
// a pure function of the issue list and configuration: identical inputs
// always yield identical, identically ordered cluster lists, which keeps
// re-merge ordering reproducible.
package cluster

import (
	"crypto/md5" // #nosec G401 - fingerprints identify clusters, not secrets
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/codemend/codemend/pkg/diagnostics"
)

// Cluster is a group of issues in one file that are fixed together in a
// single oracle attempt.
type Cluster struct {
	File        string
	Issues      []diagnostics.Issue
	StartLine   int
	EndLine     int
	Reason      string
	Fingerprint string
}

// Span returns the inclusive line range covered by the cluster.
func (c Cluster) Span() (int, int) {
	return c.StartLine, c.EndLine
}

// Size returns the number of member issues.
func (c Cluster) Size() int {
	return len(c.Issues)
}

// New builds a cluster over issues, deriving its span and fingerprint.
// Issues must be non-empty.
func New(file, reason string, issues []diagnostics.Issue) Cluster {
	minLine, maxLine := issues[0].Line, issues[0].Line
	for _, issue := range issues[1:] {
		if issue.Line < minLine {
			minLine = issue.Line
		}
		if issue.Line > maxLine {
			maxLine = issue.Line
		}
	}

	return Cluster{
		File:        file,
		Issues:      issues,
		StartLine:   minLine,
		EndLine:     maxLine,
		Reason:      reason,
		Fingerprint: fingerprint(issues),
	}
}

// fingerprint derives a short stable identifier for a cluster from its
// members' code:line pairs.
func fingerprint(issues []diagnostics.Issue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, fmt.Sprintf("%s:%d", issue.Code, issue.Line))
	}

	sum := md5.Sum([]byte(strings.Join(parts, "|"))) // #nosec G401
	return hex.EncodeToString(sum[:])[:8]
}
