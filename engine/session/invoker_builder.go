package session

import (
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/aggregator"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/analyzer"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/index"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/loader"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/packer"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/planner"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/resampler"
)

// InvokerBuilderOption configures an Invoker at construction time.
type InvokerBuilderOption func(*invoker)

// WithImageIndex overrides the default image index, useful for tests that
// want to pre-seed assets without going through Ingest.
func WithImageIndex(idx index.ImageIndex) InvokerBuilderOption {
	return func(inv *invoker) {
		inv.idx = idx
	}
}

// WithLoader overrides the default Loader.
func WithLoader(l loader.Loader) InvokerBuilderOption {
	return func(inv *invoker) {
		inv.ldr = l
	}
}

// WithAnalyzer overrides the default Analyzer.
func WithAnalyzer(a analyzer.Analyzer) InvokerBuilderOption {
	return func(inv *invoker) {
		inv.analyzer = a
	}
}

// WithAggregator overrides the default Aggregator.
func WithAggregator(a aggregator.Aggregator) InvokerBuilderOption {
	return func(inv *invoker) {
		inv.aggregator = a
	}
}

// WithPlanner overrides the default Planner.
func WithPlanner(p planner.Planner) InvokerBuilderOption {
	return func(inv *invoker) {
		inv.planner = p
	}
}

// WithResampler overrides the default Resampler.
func WithResampler(r resampler.Resampler) InvokerBuilderOption {
	return func(inv *invoker) {
		inv.resampler = r
	}
}

// WithPacker overrides the default Packer.
func WithPacker(p packer.Packer) InvokerBuilderOption {
	return func(inv *invoker) {
		inv.packer = p
	}
}

// WithWorkerPool overrides the default resample worker pool, e.g. to
// size it to the host's CPU count.
func WithWorkerPool(workers, queueSize int, idleTimeout time.Duration) InvokerBuilderOption {
	return func(inv *invoker) {
		inv.pool = worker.NewDynamicWorkerPool(workers, queueSize, idleTimeout)
	}
}
