// Package config loads steward configuration from YAML with environment
// overrides. All sections have working defaults so the engine runs with no
// config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all steward configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Grammar   GrammarConfig   `yaml:"grammar"`
	Cache     CacheConfig     `yaml:"cache"`
	Context   ContextConfig   `yaml:"context"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Retry     RetryConfig     `yaml:"retry"`
	Execution ExecutionConfig `yaml:"execution"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GrammarConfig configures rule loading and matching.
type GrammarConfig struct {
	// RulePath is the versioned rule file. Empty uses the built-in ruleset.
	RulePath string `yaml:"rule_path"`
	// WatchRules reloads the grammar when the rule file changes.
	WatchRules bool `yaml:"watch_rules"`
	// MinStructuralConfidence is the floor below which a pattern match is
	// treated as NoMatch.
	MinStructuralConfidence float64 `yaml:"min_structural_confidence"`
	// WakePhrases are stripped from the front of input during
	// normalization.
	WakePhrases []string `yaml:"wake_phrases"`
}

// CacheConfig bounds the parse and plan caches.
type CacheConfig struct {
	ParseCapacity int `yaml:"parse_capacity"`
	PlanCapacity  int `yaml:"plan_capacity"`
}

// ContextConfig bounds the conversation window.
type ContextConfig struct {
	MaxEntries int    `yaml:"max_entries"`
	MaxAge     string `yaml:"max_age"`
}

// MaxAgeDuration parses MaxAge, falling back to 5 minutes.
func (c ContextConfig) MaxAgeDuration() time.Duration {
	if d, err := time.ParseDuration(c.MaxAge); err == nil && d > 0 {
		return d
	}
	return 5 * time.Minute
}

// RankingConfig holds scoring weights and decision thresholds. Weights must
// sum to 1.0.
type RankingConfig struct {
	PatternWeight    float64 `yaml:"pattern_weight"`
	EntityWeight     float64 `yaml:"entity_weight"`
	ContextWeight    float64 `yaml:"context_weight"`
	HistoryWeight    float64 `yaml:"history_weight"`
	SynonymWeight    float64 `yaml:"synonym_weight"`
	PriorityWeight   float64 `yaml:"priority_weight"`
	ClarifyThreshold float64 `yaml:"clarify_threshold"`
	RejectThreshold  float64 `yaml:"reject_threshold"`
	// ConfidenceThreshold is the floor below which a plan fails validation.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// RetryConfig configures retry-with-backoff for recoverable failures.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts"`
	InitialBackoff string  `yaml:"initial_backoff"`
	MaxBackoff     string  `yaml:"max_backoff"`
	Multiplier     float64 `yaml:"multiplier"`
}

// ExecutionConfig bounds plan execution and names confirmation-gated actions.
type ExecutionConfig struct {
	StepTimeout    string `yaml:"step_timeout"`
	PlanTimeout    string `yaml:"plan_timeout"`
	MaxParallelism int    `yaml:"max_parallelism"`
	// ConfirmKinds gates entire action kinds, ConfirmOps gates "kind/op"
	// pairs (e.g. "system_control/shutdown").
	ConfirmKinds []string `yaml:"confirm_kinds"`
	ConfirmOps   []string `yaml:"confirm_ops"`
}

// LoggingConfig configures the logging backend.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	JSONFormat bool            `yaml:"json_format"`
	File       string          `yaml:"file"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "steward",
		Version: "0.3.0",

		Grammar: GrammarConfig{
			MinStructuralConfidence: 0.4,
			WakePhrases:             []string{"hey steward", "ok steward", "steward"},
		},

		Cache: CacheConfig{
			ParseCapacity: 100,
			PlanCapacity:  100,
		},

		Context: ContextConfig{
			MaxEntries: 10,
			MaxAge:     "5m",
		},

		Ranking: RankingConfig{
			PatternWeight:       0.40,
			EntityWeight:        0.20,
			ContextWeight:       0.15,
			HistoryWeight:       0.10,
			SynonymWeight:       0.10,
			PriorityWeight:      0.05,
			ClarifyThreshold:    0.5,
			RejectThreshold:     0.3,
			ConfidenceThreshold: 0.5,
		},

		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: "100ms",
			MaxBackoff:     "5s",
			Multiplier:     2.0,
		},

		Execution: ExecutionConfig{
			StepTimeout:    "30s",
			PlanTimeout:    "5m",
			MaxParallelism: 4,
			ConfirmOps: []string{
				"system_control/shutdown",
				"system_control/restart",
				"close_app/all",
			},
		},

		Logging: LoggingConfig{
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies STEWARD_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("STEWARD_RULES"); path != "" {
		c.Grammar.RulePath = path
	}
	if v := os.Getenv("STEWARD_DEBUG"); v != "" {
		c.Logging.DebugMode = v == "1" || v == "true"
	}
	if v := os.Getenv("STEWARD_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("STEWARD_CLARIFY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Ranking.ClarifyThreshold = f
		}
	}
	if v := os.Getenv("STEWARD_MAX_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Execution.MaxParallelism = n
		}
	}
	if v := os.Getenv("STEWARD_PLAN_TIMEOUT"); v != "" {
		if _, err := time.ParseDuration(v); err == nil {
			c.Execution.PlanTimeout = v
		}
	}
}

// Validate rejects configurations the engine cannot run under.
func (c *Config) Validate() error {
	r := c.Ranking
	sum := r.PatternWeight + r.EntityWeight + r.ContextWeight +
		r.HistoryWeight + r.SynonymWeight + r.PriorityWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("ranking weights must sum to 1.0, got %.3f", sum)
	}
	if r.RejectThreshold > r.ClarifyThreshold {
		return fmt.Errorf("reject_threshold (%.2f) must not exceed clarify_threshold (%.2f)",
			r.RejectThreshold, r.ClarifyThreshold)
	}
	if c.Cache.ParseCapacity <= 0 || c.Cache.PlanCapacity <= 0 {
		return fmt.Errorf("cache capacities must be positive")
	}
	if c.Context.MaxEntries <= 0 {
		return fmt.Errorf("context max_entries must be positive")
	}
	if c.Execution.MaxParallelism <= 0 {
		return fmt.Errorf("execution max_parallelism must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1")
	}
	return nil
}
