// Package logging provides categorized structured logging for ideaforge.
// Each subsystem logs through a named zap logger; the level is controlled
// by IDEAFORGE_LOG_LEVEL (debug/info/warn/error, default info). Logging is
// silent in tests unless explicitly configured.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryWorkflow   Category = "workflow"   // Pipeline state machine
	CategoryAgents     Category = "agents"     // Batched agent operations
	CategoryProvider   Category = "provider"   // Outbound LLM calls
	CategoryCache      Category = "cache"      // Workflow/agent cache
	CategoryProgress   Category = "progress"   // Progress fan-out
	CategoryEvaluation Category = "evaluation" // Multi-dimensional scoring
	CategoryInference  Category = "inference"  // Logical inference engine
	CategoryBookmarks  Category = "bookmarks"  // Bookmark store
	CategoryConfig     Category = "config"     // Option/config resolution
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	sugared = make(map[Category]*zap.SugaredLogger)
)

// Init installs the root logger. Safe to call more than once; the last
// call wins. Passing nil resets to the environment-derived default.
func Init(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
	sugared = make(map[Category]*zap.SugaredLogger)
}

// NewDefault builds a production zap logger honoring IDEAFORGE_LOG_LEVEL.
func NewDefault() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(levelFromEnv())
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func levelFromEnv() zapcore.Level {
	switch strings.ToLower(os.Getenv("IDEAFORGE_LOG_LEVEL")) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// For returns the sugared logger for a category.
func For(c Category) *zap.SugaredLogger {
	mu.RLock()
	if s, ok := sugared[c]; ok {
		mu.RUnlock()
		return s
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if s, ok := sugared[c]; ok {
		return s
	}
	if root == nil {
		root = zap.NewNop()
	}
	s := root.Named(string(c)).Sugar()
	sugared[c] = s
	return s
}

// Convenience helpers mirroring the categories. Printf-style.

func Workflow(format string, args ...interface{})   { For(CategoryWorkflow).Infof(format, args...) }
func Agents(format string, args ...interface{})     { For(CategoryAgents).Infof(format, args...) }
func Provider(format string, args ...interface{})   { For(CategoryProvider).Infof(format, args...) }
func Cache(format string, args ...interface{})      { For(CategoryCache).Infof(format, args...) }
func Progress(format string, args ...interface{})   { For(CategoryProgress).Infof(format, args...) }
func Evaluation(format string, args ...interface{}) { For(CategoryEvaluation).Infof(format, args...) }
func Inference(format string, args ...interface{})  { For(CategoryInference).Infof(format, args...) }
func Bookmarks(format string, args ...interface{})  { For(CategoryBookmarks).Infof(format, args...) }
func Config(format string, args ...interface{})     { For(CategoryConfig).Infof(format, args...) }

// Error logs at error level for a category.
func Error(c Category, format string, args ...interface{}) {
	For(c).Errorf(format, args...)
}

// Warn logs at warn level for a category.
func Warn(c Category, format string, args ...interface{}) {
	For(c).Warnf(format, args...)
}

// Debug logs at debug level for a category.
func Debug(c Category, format string, args ...interface{}) {
	For(c).Debugf(format, args...)
}
