package cluster

import (
	"github.com/codemend/codemend/pkg/diagnostics"
	"github.com/codemend/codemend/pkg/errors"
	"github.com/codemend/codemend/pkg/logger"
)

// Config controls how the engine groups issues.
type Config struct {
	// Distance is the maximum line gap between consecutive issues in one
	// proximity cluster.
	Distance int

	// MaxIssues caps cluster membership; no cluster ever exceeds it.
	MaxIssues int

	// Strategy selects the grouping algorithm.
	Strategy Strategy

	// Categories maps a custom category name to the substring patterns that
	// select it, checked before the built-in heuristics.
	Categories map[string][]string
}

// DefaultConfig mirrors the defaults of the hook configuration.
func DefaultConfig() Config {
	return Config{
		Distance:  5,
		MaxIssues: 5,
		Strategy:  StrategyProximity,
	}
}

// Validate checks configuration bounds before any clustering happens.
func (c Config) Validate() error {
	if c.Distance < 0 {
		return errors.ConfigurationError("cluster distance must be >= 0")
	}
	if c.MaxIssues < 1 {
		return errors.ConfigurationError("max issues per cluster must be >= 1")
	}
	return nil
}

// Engine groups one file's issues into fix units.
type Engine struct {
	config      Config
	customNames []string
	log         *logger.Logger
}

// NewEngine creates a clustering engine. The configuration must already be
// validated.
func NewEngine(config Config, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Engine{
		config:      config,
		customNames: sortedNames(config.Categories),
		log:         log.WithPrefix("cluster"),
	}
}

// Split partitions a file's issues into clusters according to the
// configured strategy. Input issues must already be normalized; the engine
// preserves their order inside each cluster.
func (e *Engine) Split(file string, issues []diagnostics.Issue) []Cluster {
	if len(issues) == 0 {
		return nil
	}

	var clusters []Cluster
	switch e.config.Strategy {
	case StrategySimilarity:
		clusters = e.splitBySimilarity(file, issues)
	case StrategyHybrid:
		clusters = e.splitHybrid(file, issues)
	default:
		clusters = e.splitByProximity(file, "proximity", issues)
	}

	e.log.Info("clustered %d issues in %s into %d groups by %s",
		len(issues), file, len(clusters), e.config.Strategy)
	return clusters
}

// splitByProximity scans issues in line order and starts a new cluster
// whenever the gap to the previous issue exceeds the configured distance or
// the running cluster is full.
func (e *Engine) splitByProximity(file, reason string, issues []diagnostics.Issue) []Cluster {
	var clusters []Cluster
	var current []diagnostics.Issue

	for _, issue := range issues {
		switch {
		case len(current) == 0:
			current = append(current, issue)
		case issue.Line-current[len(current)-1].Line <= e.config.Distance && len(current) < e.config.MaxIssues:
			current = append(current, issue)
		default:
			clusters = append(clusters, New(file, reason, current))
			current = []diagnostics.Issue{issue}
		}
	}

	if len(current) > 0 {
		clusters = append(clusters, New(file, reason, current))
	}

	return clusters
}

// splitBySimilarity groups issues sharing a category regardless of
// distance, then chops oversized groups into line-ordered chunks.
func (e *Engine) splitBySimilarity(file string, issues []diagnostics.Issue) []Cluster {
	var clusters []Cluster
	for _, group := range e.groupByCategory(issues) {
		for start := 0; start < len(group.issues); start += e.config.MaxIssues {
			end := start + e.config.MaxIssues
			if end > len(group.issues) {
				end = len(group.issues)
			}
			clusters = append(clusters, New(file, "similarity:"+group.name, group.issues[start:end]))
		}
	}
	return clusters
}

// splitHybrid partitions by category first, then applies the proximity rule
// inside each partition.
func (e *Engine) splitHybrid(file string, issues []diagnostics.Issue) []Cluster {
	var clusters []Cluster
	for _, group := range e.groupByCategory(issues) {
		clusters = append(clusters, e.splitByProximity(file, "hybrid:"+group.name, group.issues)...)
	}
	return clusters
}

type categoryGroup struct {
	name   string
	issues []diagnostics.Issue
}

// groupByCategory partitions issues into category groups ordered by each
// category's first appearance in the (line-ordered) input, keeping the
// result deterministic.
func (e *Engine) groupByCategory(issues []diagnostics.Issue) []categoryGroup {
	index := make(map[string]int)
	var groups []categoryGroup

	for _, issue := range issues {
		name := e.categorize(issue)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, categoryGroup{name: name})
		}
		groups[i].issues = append(groups[i].issues, issue)
	}

	return groups
}
