package config

import (
	"time"

	"steward/internal/types"
)

// RetryPolicy converts the retry section into the executor's policy type.
func (c *Config) RetryPolicy() types.RetryPolicy {
	p := types.DefaultRetryPolicy()
	if c.Retry.MaxAttempts > 0 {
		p.MaxAttempts = c.Retry.MaxAttempts
	}
	if d, err := time.ParseDuration(c.Retry.InitialBackoff); err == nil && d > 0 {
		p.InitialBackoff = d
	}
	if d, err := time.ParseDuration(c.Retry.MaxBackoff); err == nil && d > 0 {
		p.MaxBackoff = d
	}
	if c.Retry.Multiplier > 1 {
		p.Multiplier = c.Retry.Multiplier
	}
	return p
}

// ExecutionPolicy converts the execution section into the executor's policy
// type.
func (c *Config) ExecutionPolicy() types.ExecutionPolicy {
	p := types.ExecutionPolicy{
		ConfirmKinds: make(map[types.ActionKind]bool),
		ConfirmOps:   make(map[string]bool),
		StepTimeout:  30 * time.Second,
		PlanTimeout:  5 * time.Minute,
	}
	for _, k := range c.Execution.ConfirmKinds {
		p.ConfirmKinds[types.ActionKind(k)] = true
	}
	for _, op := range c.Execution.ConfirmOps {
		p.ConfirmOps[op] = true
	}
	if d, err := time.ParseDuration(c.Execution.StepTimeout); err == nil && d > 0 {
		p.StepTimeout = d
	}
	if d, err := time.ParseDuration(c.Execution.PlanTimeout); err == nil && d > 0 {
		p.PlanTimeout = d
	}
	return p
}
