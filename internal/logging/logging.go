// Package logging provides categorized zap loggers for thinktank subsystems.
// Each subsystem logs under its own named logger so a single round of
// deliberation can be traced per stage (persona load, fan-out, synthesis).
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config, registry load
	CategoryPersona   Category = "persona"   // Persona registry
	CategoryExtension Category = "extension" // Extension activation
	CategoryGateway   Category = "gateway"   // Completion API calls
	CategorySwarm     Category = "swarm"     // Fan-out orchestration
	CategoryConsensus Category = "consensus" // Foreperson synthesis
	CategoryReport    Category = "report"    // Artifact writing
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init builds the process-wide root logger. Verbose enables debug level.
// Called once at startup; before Init all loggers are no-ops.
func Init(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	mu.Lock()
	root = logger
	mu.Unlock()
	return logger, nil
}

// SetLogger replaces the root logger. Tests use this with observer cores.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	root = l
	mu.Unlock()
}

// Get returns the named logger for a category.
func Get(category Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(string(category))
}

// Sync flushes buffered log entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
