// Package diagnostics defines the normalized issue model shared by every
// stage of the fix pipeline. Issues arrive unordered from linting and
// type-checking tools; this package gives them a stable ordering and a
// progress-tracking identity.
package diagnostics

import (
	"sort"
	"strings"
)

// Severity classifies how serious a reported issue is.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a tool-reported severity string to a Severity.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "fatal":
		return SeverityError
	case "warning", "warn":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Issue is one normalized diagnostic. Immutable once produced by the
// provider; a fresh set is produced on every iteration.
type Issue struct {
	File     string   `json:"file" yaml:"file"`
	Line     int      `json:"line" yaml:"line"`
	Column   int      `json:"column" yaml:"column"`
	Code     string   `json:"code" yaml:"code"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
	Source   string   `json:"source" yaml:"source"`
}

// Identity is the progress-tracking key for an issue. Two issues with the
// same identity are the same issue for stall detection and reporting, even
// if their messages or columns differ between tools.
type Identity struct {
	File string
	Line int
	Code string
}

// Identity returns the issue's progress-tracking identity.
func (i Issue) Identity() Identity {
	return Identity{File: i.File, Line: i.Line, Code: i.Code}
}

// Normalize sorts issues into the pipeline's canonical order (ascending
// line, then column, then code) and collapses duplicate identities,
// last-seen wins, to tolerate double-reporting from overlapping tools.
func Normalize(issues []Issue) []Issue {
	if len(issues) == 0 {
		return nil
	}

	// Last occurrence of each identity wins.
	byIdentity := make(map[Identity]Issue, len(issues))
	order := make([]Identity, 0, len(issues))
	for _, issue := range issues {
		id := issue.Identity()
		if _, seen := byIdentity[id]; !seen {
			order = append(order, id)
		}
		byIdentity[id] = issue
	}

	normalized := make([]Issue, 0, len(order))
	for _, id := range order {
		normalized = append(normalized, byIdentity[id])
	}

	sort.SliceStable(normalized, func(a, b int) bool {
		ia, ib := normalized[a], normalized[b]
		if ia.Line != ib.Line {
			return ia.Line < ib.Line
		}
		if ia.Column != ib.Column {
			return ia.Column < ib.Column
		}
		return ia.Code < ib.Code
	})

	return normalized
}

// Identities returns the identity set of a slice of issues.
func Identities(issues []Issue) map[Identity]struct{} {
	set := make(map[Identity]struct{}, len(issues))
	for _, issue := range issues {
		set[issue.Identity()] = struct{}{}
	}
	return set
}
