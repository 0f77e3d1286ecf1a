package fgmem

import (
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// CreateOptions configures a Pool at construction. The zero value is a valid
// configuration: internal locking on, aliasing enabled with the default
// threshold, no lifetime analyzer.
type CreateOptions struct {
	Flags CreateFlags

	// AliasingThreshold overrides DefaultAliasingThreshold when positive.
	AliasingThreshold int

	// Analyzer optionally supplies precomputed resource live ranges. Leaving
	// it nil falls back to online discovery through release ordering.
	Analyzer LifetimeAnalyzer
}

// New creates a Pool and the subsystems it fronts. The logger is used for
// method tracing only; pass nil to default to slog.Default().
func New(logger *slog.Logger, options CreateOptions) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if options.AliasingThreshold < 0 {
		return nil, errors.Errorf("attempted to create a pool with a negative aliasing threshold %d", options.AliasingThreshold)
	}

	engine := NewAliasingEngine()
	if options.AliasingThreshold > 0 {
		engine.SetAliasingThreshold(options.AliasingThreshold)
	}
	if options.Flags&PoolCreateDisableAliasing != 0 {
		engine.Enable(false)
	}
	engine.SetLifetimeAnalyzer(options.Analyzer)

	pool := &Pool{
		logger:   logger,
		tracker:  NewDependencyTracker(),
		budgets:  NewBudgetManager(),
		engine:   engine,
		profiler: NewProfiler(),
		stack:    NewStackTracker(),
		live:     swiss.NewMap[ResourceHandle, liveCharge](64),
	}
	pool.mutex.UseMutex = options.Flags&PoolCreateExternallySynchronized == 0
	return pool, nil
}
