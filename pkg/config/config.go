// Package config holds the runtime configuration, loaded from YAML with
// environment overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/codemend/codemend/pkg/cluster"
	"github.com/codemend/codemend/pkg/dispatch"
	"github.com/codemend/codemend/pkg/errors"
	"github.com/codemend/codemend/pkg/logger"
	"github.com/codemend/codemend/pkg/merge"
	"github.com/codemend/codemend/pkg/oracle"
	"github.com/codemend/codemend/pkg/predict"
)

// Config is the full runtime configuration.
type Config struct {
	Clustering    ClusteringConfig    `yaml:"clustering"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Workspaces    WorkspacesConfig    `yaml:"workspaces"`
	Iterations    IterationsConfig    `yaml:"iterations"`
	Merge         MergeConfig         `yaml:"merge"`
	Predict       PredictConfig       `yaml:"predict"`
	Logging       LoggingConfig       `yaml:"logging"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Watch         WatchConfig         `yaml:"watch"`
}

// ClusteringConfig controls how issues are grouped into fix units.
type ClusteringConfig struct {
	Strategy            string              `yaml:"strategy"`
	Distance            int                 `yaml:"distance"`
	MaxIssuesPerCluster int                 `yaml:"max_issues_per_cluster"`
	Categories          map[string][]string `yaml:"categories"`
}

// OracleConfig controls oracle invocations. Timeout is in seconds.
type OracleConfig struct {
	Command        string `yaml:"command"`
	Timeout        int    `yaml:"timeout"`
	MaxFixAttempts int    `yaml:"max_fix_attempts"`
}

// WorkspacesConfig bounds the worktree pool and the worker pool. The two
// limits are independent.
type WorkspacesConfig struct {
	MaxWorktrees int64 `yaml:"max_worktrees"`
	MaxWorkers   int64 `yaml:"max_workers"`
}

// IterationsConfig bounds the fix loop.
type IterationsConfig struct {
	Max int `yaml:"max"`
}

// MergeConfig selects the merge strategy.
type MergeConfig struct {
	Strategy string `yaml:"strategy"`
}

// PredictConfig controls the predictive fixer.
type PredictConfig struct {
	Enabled bool              `yaml:"enabled"`
	Imports map[string]string `yaml:"imports"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// NotificationsConfig gates desktop notifications.
type NotificationsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// WatchConfig controls watch mode. Debounce is in milliseconds.
type WatchConfig struct {
	DebounceMS int      `yaml:"debounce_ms"`
	Patterns   []string `yaml:"patterns"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Clustering: ClusteringConfig{
			Strategy:            "proximity",
			Distance:            5,
			MaxIssuesPerCluster: 5,
		},
		Oracle: OracleConfig{
			Command:        oracle.DefaultCommand,
			Timeout:        600,
			MaxFixAttempts: 3,
		},
		Workspaces: WorkspacesConfig{
			MaxWorktrees: 10,
			MaxWorkers:   10,
		},
		Iterations: IterationsConfig{Max: 3},
		Merge:      MergeConfig{Strategy: "oracle"},
		Predict:    PredictConfig{Enabled: true},
		Logging:    LoggingConfig{Level: "info"},
		Watch: WatchConfig{
			DebounceMS: 500,
			Patterns:   []string{"*.py"},
		},
	}
}

// ApplyEnvironmentOverrides layers CODEMEND_* variables over the loaded
// values.
func (c *Config) ApplyEnvironmentOverrides() {
	if cmd := os.Getenv("CODEMEND_ORACLE_COMMAND"); cmd != "" {
		c.Oracle.Command = cmd
	}
	if strategy := os.Getenv("CODEMEND_MERGE_STRATEGY"); strategy != "" {
		c.Merge.Strategy = strategy
	}
	if level := os.Getenv("CODEMEND_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("CODEMEND_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
	if max := os.Getenv("CODEMEND_MAX_ITERATIONS"); max != "" {
		if n, err := strconv.Atoi(max); err == nil {
			c.Iterations.Max = n
		}
	}
	if os.Getenv("CODEMEND_DEBUG") == "true" {
		c.Logging.Level = "debug"
	}
}

// Validate checks every section against its consumer's constraints.
func (c *Config) Validate() error {
	if err := c.ToClusterConfig().Validate(); err != nil {
		return err
	}
	if _, err := cluster.ParseStrategy(c.Clustering.Strategy); err != nil {
		return err
	}
	if _, err := merge.ParseStrategy(c.Merge.Strategy); err != nil {
		return err
	}
	if c.Oracle.Command == "" {
		return errors.ConfigurationError("oracle.command cannot be empty")
	}
	if c.Oracle.Timeout < 1 {
		return errors.ConfigurationError("oracle.timeout must be at least 1 second")
	}
	if err := c.ToDispatchConfig().Validate(); err != nil {
		return err
	}
	if c.Workspaces.MaxWorktrees < 1 {
		return errors.ConfigurationError("workspaces.max_worktrees must be at least 1")
	}
	if c.Iterations.Max < 1 {
		return errors.ConfigurationError("iterations.max must be at least 1")
	}
	if c.Watch.DebounceMS < 0 {
		return errors.ConfigurationError("watch.debounce_ms cannot be negative")
	}
	return nil
}

// ToClusterConfig converts the clustering section.
func (c *Config) ToClusterConfig() cluster.Config {
	strategy, _ := cluster.ParseStrategy(c.Clustering.Strategy)
	return cluster.Config{
		Distance:   c.Clustering.Distance,
		MaxIssues:  c.Clustering.MaxIssuesPerCluster,
		Strategy:   strategy,
		Categories: c.Clustering.Categories,
	}
}

// ToOracleConfig converts the oracle section.
func (c *Config) ToOracleConfig() oracle.Config {
	return oracle.Config{
		Command: c.Oracle.Command,
		Timeout: time.Duration(c.Oracle.Timeout) * time.Second,
	}
}

// ToDispatchConfig converts the worker bounds.
func (c *Config) ToDispatchConfig() dispatch.Config {
	return dispatch.Config{
		MaxWorkers:     c.Workspaces.MaxWorkers,
		MaxFixAttempts: c.Oracle.MaxFixAttempts,
	}
}

// ToPredictConfig converts the predict section.
func (c *Config) ToPredictConfig() predict.Config {
	return predict.Config{
		Enabled: c.Predict.Enabled,
		Imports: c.Predict.Imports,
	}
}

// ToMergeStrategy converts the merge section.
func (c *Config) ToMergeStrategy() merge.Strategy {
	strategy, _ := merge.ParseStrategy(c.Merge.Strategy)
	return strategy
}

// ToLoggerConfig converts the logging section.
func (c *Config) ToLoggerConfig() logger.Config {
	return logger.Config{
		Level:     logger.ParseLevel(c.Logging.Level),
		LogFile:   c.Logging.File,
		Prefix:    "codemend",
		Timestamp: true,
	}
}

// Debounce returns the watch debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// GetConfigPaths lists the configuration file locations, most specific
// first.
func GetConfigPaths() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	paths := []string{
		".codemend.yaml",
		".codemend.yml",
		filepath.Join(homeDir, ".codemend.yaml"),
		filepath.Join(homeDir, ".config", "codemend", "config.yaml"),
		filepath.Join(homeDir, ".config", "codemend", "config.yml"),
	}

	if envPath := os.Getenv("CODEMEND_CONFIG"); envPath != "" {
		paths = append([]string{envPath}, paths...)
	}
	return paths
}
