// Package logging provides categorized structured logging for steward,
// backed by zap. Each subsystem logs under its own category; categories can
// be enabled or disabled individually. When debug mode is off only Warn and
// Error are emitted.
package logging

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup and wiring
	CategoryGrammar  Category = "grammar"  // Rule compilation and reload
	CategoryParser   Category = "parser"   // Normalization, matching, segmentation
	CategoryRanking  Category = "ranking"  // Confidence scoring
	CategoryContext  Category = "context"  // Conversation window
	CategoryCache    Category = "cache"    // Parse/plan cache operations
	CategoryPlanner  Category = "planner"  // Plan construction and validation
	CategoryExecutor Category = "executor" // Step scheduling, retries, compensation
	CategoryEngine   Category = "engine"   // Pipeline-level decisions
)

// Options configures the logging subsystem.
type Options struct {
	// DebugMode enables Debug/Info output. When false only Warn/Error
	// are emitted.
	DebugMode bool
	// JSONFormat selects the zap JSON encoder instead of console output.
	JSONFormat bool
	// Categories filters output per category; an empty map enables all.
	Categories map[string]bool
	// FilePath, when set, appends log output to a file instead of stderr.
	FilePath string
}

// Logger wraps a zap sugared logger bound to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	enabled  bool
}

var (
	mu      sync.RWMutex
	base    *zap.Logger
	opts    Options
	loggers = make(map[Category]*Logger)
)

// Initialize sets up the zap backend. Safe to call more than once; later
// calls replace the backend and drop cached category loggers.
func Initialize(o Options) error {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if o.JSONFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	sink := zapcore.Lock(os.Stderr)
	if o.FilePath != "" {
		f, err := os.OpenFile(o.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		sink = zapcore.Lock(f)
	}

	level := zapcore.WarnLevel
	if o.DebugMode {
		level = zapcore.DebugLevel
	}

	mu.Lock()
	defer mu.Unlock()
	base = zap.New(zapcore.NewCore(enc, sink, level))
	opts = o
	loggers = make(map[Category]*Logger)
	return nil
}

// Get returns the logger for a category, creating it on first use. Before
// Initialize it returns a no-op logger.
func Get(cat Category) *Logger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := &Logger{category: cat}
	if base != nil {
		l.sugar = base.Sugar().Named(string(cat))
		l.enabled = categoryEnabled(cat)
	}
	loggers[cat] = l
	return l
}

// categoryEnabled checks the category filter. Caller holds mu.
func categoryEnabled(cat Category) bool {
	if len(opts.Categories) == 0 {
		return true
	}
	enabled, ok := opts.Categories[string(cat)]
	return ok && enabled
}

// Debug logs at debug level with printf formatting.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil || !l.enabled {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs at info level with printf formatting.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil || !l.enabled {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs at warn level with printf formatting.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil || !l.enabled {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs at error level with printf formatting.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil || !l.enabled {
		return
	}
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered output. Call before process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// Convenience helpers for the hot categories, mirroring Get(cat).Info.

// Grammar logs an info message to the grammar category.
func Grammar(format string, args ...interface{}) { Get(CategoryGrammar).Info(format, args...) }

// Parser logs an info message to the parser category.
func Parser(format string, args ...interface{}) { Get(CategoryParser).Info(format, args...) }

// ParserDebug logs a debug message to the parser category.
func ParserDebug(format string, args ...interface{}) { Get(CategoryParser).Debug(format, args...) }

// Ranking logs an info message to the ranking category.
func Ranking(format string, args ...interface{}) { Get(CategoryRanking).Info(format, args...) }

// Planner logs an info message to the planner category.
func Planner(format string, args ...interface{}) { Get(CategoryPlanner).Info(format, args...) }

// Executor logs an info message to the executor category.
func Executor(format string, args ...interface{}) { Get(CategoryExecutor).Info(format, args...) }

// ExecutorDebug logs a debug message to the executor category.
func ExecutorDebug(format string, args ...interface{}) { Get(CategoryExecutor).Debug(format, args...) }

// Engine logs an info message to the engine category.
func Engine(format string, args ...interface{}) { Get(CategoryEngine).Info(format, args...) }

// CacheDebug logs a debug message to the cache category.
func CacheDebug(format string, args ...interface{}) { Get(CategoryCache).Debug(format, args...) }
