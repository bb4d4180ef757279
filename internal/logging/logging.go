// Package logging provides category-scoped structured logging for datanerd.
// Each subsystem logs through a named child of a single zap root so that
// records can be filtered per category.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem a log record belongs to.
type Category string

const (
	CategoryDataset Category = "dataset"
	CategoryPrompt  Category = "prompt"
	CategoryPolicy  Category = "policy"
	CategorySandbox Category = "sandbox"
	CategorySession Category = "session"
	CategoryLLM     Category = "llm"
	CategoryStore   Category = "store"
	CategoryAnalyst Category = "analyst"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Initialize builds the process-wide root logger. Debug mode switches to a
// development encoder at debug level; production mode logs JSON at info.
func Initialize(debug bool) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// Get returns the logger for a category. Safe before Initialize; records are
// dropped until a root is installed.
func Get(cat Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(string(cat))
}

// Sync flushes buffered records. Call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
