package cluster

import (
	"sort"
	"strings"

	"github.com/codemend/codemend/pkg/diagnostics"
)

// categoryRule is one built-in category with the substrings that select it.
type categoryRule struct {
	name     string
	keywords []string
}

// Built-in heuristics checked in order after any custom categories. The
// keywords match against the lowercased rule code and message.
var builtinCategories = []categoryRule{
	{"imports", []string{"import", "f401", "e402", "isort"}},
	{"types", []string{"type", "reportargumenttype", "reportassignmenttype", "reportreturntype", "reportmissingtypeargument", "annotation", "typing"}},
	{"undefined", []string{"f821", "undefined", "nameerror", "unbound"}},
	{"unused", []string{"f841", "unused", "assigned but never used"}},
	{"docstrings", []string{"docstring", "missing docstring", "d100", "d101", "d102"}},
	{"formatting", []string{"syntax", "indent", "whitespace", "format"}},
	{"security", []string{"security", "bandit", "unsafe"}},
	{"complexity", []string{"c901", "complex", "cyclomatic", "mccabe"}},
}

// categorize assigns an issue to a named category for similarity grouping.
// Custom categories win over the built-in heuristics; unmatched issues fall
// back to a rule-prefix bucket so every issue lands somewhere deterministic.
func (e *Engine) categorize(issue diagnostics.Issue) string {
	code := strings.ToLower(issue.Code)
	message := strings.ToLower(issue.Message)

	// Custom category names are sorted so that lookup order does not depend
	// on map iteration.
	for _, name := range e.customNames {
		for _, pattern := range e.config.Categories[name] {
			p := strings.ToLower(pattern)
			if p != "" && (strings.Contains(code, p) || strings.Contains(message, p)) {
				return name
			}
		}
	}

	for _, rule := range builtinCategories {
		for _, keyword := range rule.keywords {
			if strings.Contains(code, keyword) || strings.Contains(message, keyword) {
				return rule.name
			}
		}
	}

	if code != "" {
		return "rule_" + code[:1]
	}

	return "other"
}

func sortedNames(categories map[string][]string) []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
