package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Ranking.ClarifyThreshold != 0.5 {
		t.Errorf("expected clarify threshold 0.5, got %v", cfg.Ranking.ClarifyThreshold)
	}
	if cfg.Context.MaxEntries != 10 {
		t.Errorf("expected context window of 10, got %d", cfg.Context.MaxEntries)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.ParseCapacity != 100 {
		t.Errorf("expected default parse capacity, got %d", cfg.Cache.ParseCapacity)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.yaml")
	data := `
grammar:
  rule_path: rules.yaml
  min_structural_confidence: 0.6
context:
  max_entries: 20
  max_age: 10m
execution:
  max_parallelism: 2
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grammar.RulePath != "rules.yaml" {
		t.Errorf("rule_path not applied: %q", cfg.Grammar.RulePath)
	}
	if cfg.Grammar.MinStructuralConfidence != 0.6 {
		t.Errorf("min_structural_confidence not applied: %v", cfg.Grammar.MinStructuralConfidence)
	}
	if cfg.Context.MaxAgeDuration() != 10*time.Minute {
		t.Errorf("max_age not applied: %v", cfg.Context.MaxAgeDuration())
	}
	if cfg.Execution.MaxParallelism != 2 {
		t.Errorf("max_parallelism not applied: %d", cfg.Execution.MaxParallelism)
	}
	// Untouched sections keep defaults.
	if cfg.Ranking.PatternWeight != 0.40 {
		t.Errorf("pattern weight default lost: %v", cfg.Ranking.PatternWeight)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STEWARD_CLARIFY_THRESHOLD", "0.65")
	t.Setenv("STEWARD_MAX_PARALLELISM", "8")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ranking.ClarifyThreshold != 0.65 {
		t.Errorf("env clarify threshold not applied: %v", cfg.Ranking.ClarifyThreshold)
	}
	if cfg.Execution.MaxParallelism != 8 {
		t.Errorf("env parallelism not applied: %d", cfg.Execution.MaxParallelism)
	}
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ranking.PatternWeight = 0.9
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure for weights not summing to 1.0")
	}
}

func TestPolicyConversion(t *testing.T) {
	cfg := DefaultConfig()

	rp := cfg.RetryPolicy()
	if rp.MaxAttempts != 3 || rp.InitialBackoff != 100*time.Millisecond {
		t.Errorf("unexpected retry policy: %+v", rp)
	}

	ep := cfg.ExecutionPolicy()
	if !ep.ConfirmOps["system_control/shutdown"] {
		t.Error("shutdown should be confirmation-gated by default")
	}
	if ep.PlanTimeout != 5*time.Minute {
		t.Errorf("unexpected plan timeout: %v", ep.PlanTimeout)
	}
}
