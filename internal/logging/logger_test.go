package logging

import (
	"testing"
)

func TestGetBeforeInitializeIsSafe(t *testing.T) {
	// Reset global state.
	mu.Lock()
	base = nil
	loggers = make(map[Category]*Logger)
	mu.Unlock()

	l := Get(CategoryParser)
	if l == nil {
		t.Fatal("Get() returned nil")
	}
	// Must not panic.
	l.Info("parse %q", "open chrome")
	l.Debug("debug")
	l.Error("error")
}

func TestCategoryFilter(t *testing.T) {
	err := Initialize(Options{
		DebugMode:  true,
		Categories: map[string]bool{"parser": true},
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if !Get(CategoryParser).enabled {
		t.Error("parser category should be enabled")
	}
	if Get(CategoryExecutor).enabled {
		t.Error("executor category should be disabled by the filter")
	}
}

func TestAllCategoriesEnabledByDefault(t *testing.T) {
	if err := Initialize(Options{DebugMode: true}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	for _, cat := range []Category{CategoryBoot, CategoryGrammar, CategoryPlanner, CategoryEngine} {
		if !Get(cat).enabled {
			t.Errorf("category %s should be enabled when no filter is set", cat)
		}
	}
}

func TestGetReturnsSameLogger(t *testing.T) {
	if err := Initialize(Options{DebugMode: true}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	a := Get(CategoryCache)
	b := Get(CategoryCache)
	if a != b {
		t.Error("Get should cache loggers per category")
	}
}
