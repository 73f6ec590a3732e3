// Package session implements the Invoker state machine described in spec
// §4.9 and §6: ingest/clear/analyze/plan/resample/pack over one mutable
// image index, with resample batches offloaded to a background worker pool
// (spec §5). Pack runs synchronously on the caller's goroutine.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/aggregator"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/analyzer"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/index"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/loader"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/packer"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/planner"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/resampler"
)

// Invoker is the abstract command surface spec §6 describes: ingest, clear,
// analyze, plan, resample, pack. All methods are safe for concurrent use.
type Invoker interface {
	// Ingest merges a batch of raw file assets into the current session.
	// Registering assets moves the index to Ingesting; it becomes Ready at the
	// next snapshot, taken by Analyze, Plan or Resample.
	Ingest(assets []model.FileAsset) ([]model.Issue, error)

	// Clear discards all ingested state, returning to Empty.
	Clear()

	// Analyze runs the analyzer and aggregator over an immutable snapshot of
	// the current index, across every ingested skeleton document (spec §4.9:
	// "pure synchronous functions over immutable snapshots").
	Analyze() (model.AnalysisReport, error)

	// Plan computes the ordered optimization task list from the most recent
	// Analyze() result's merged stats.
	//
	// Parameters:
	//   - bufferPct: the safety buffer percentage (spec §4.7)
	Plan(bufferPct float64) ([]model.OptimizationTask, error)

	// Resample runs the resampler over every task, fanned out across the
	// background worker pool, cancelable between tasks (spec §5).
	Resample(ctx context.Context, tasks []model.OptimizationTask) ([]model.ResampledImage, error)

	// Pack runs the packer over every task's planned target size.
	Pack(tasks []model.OptimizationTask, pageSize, padding int) ([]model.AtlasPage, []model.Issue, error)

	// SetOverrides records per-image override percentages and per-usage
	// local-override composite keys ("skeletonID|animation|slot|imageKey"), applied on
	// the next Analyze() (spec §6 SessionConfig.overrides/localOverrides).
	SetOverrides(overrides map[string]float64, localOverrides []string)

	// State reports the image index's current lifecycle state.
	State() index.State
}

type invoker struct {
	mu sync.RWMutex

	idx        index.ImageIndex
	ldr        loader.Loader
	analyzer   analyzer.Analyzer
	aggregator aggregator.Aggregator
	planner    planner.Planner
	resampler  resampler.Resampler
	packer     packer.Packer

	pool worker.DynamicWorkerPool

	overrides      map[string]float64
	localOverrides map[string]bool

	lastReport model.AnalysisReport
	hasReport  bool
}

var _ Invoker = (*invoker)(nil)

// NewInvoker constructs an Invoker with options applied. The default worker
// pool sizing mirrors the teacher's scene compute pool: a small, bounded
// queue with a short idle timeout since resample batches are bursty
// rather than continuous (spec §5).
func NewInvoker(options ...InvokerBuilderOption) Invoker {
	inv := &invoker{
		idx:            index.NewImageIndex(),
		ldr:            loader.NewLoader(),
		analyzer:       analyzer.NewAnalyzer(),
		aggregator:     aggregator.NewAggregator(),
		planner:        planner.NewPlanner(),
		resampler:      resampler.NewResampler(),
		packer:         packer.NewPacker(),
		overrides:      make(map[string]float64),
		localOverrides: make(map[string]bool),
		pool:           worker.NewDynamicWorkerPool(4, 256, time.Second),
	}
	for _, option := range options {
		option(inv)
	}
	return inv
}

func (inv *invoker) Ingest(assets []model.FileAsset) ([]model.Issue, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	_, issues, err := inv.ldr.Ingest(assets, inv.idx)
	if err != nil {
		return nil, fmt.Errorf("ingest batch: %w", err)
	}
	inv.hasReport = false
	return issues, nil
}

func (inv *invoker) Clear() {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.idx.Clear()
	inv.ldr.Clear()
	inv.hasReport = false
	inv.lastReport = model.AnalysisReport{}
}

func (inv *invoker) SetOverrides(overrides map[string]float64, localOverrides []string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.overrides = make(map[string]float64, len(overrides))
	for k, v := range overrides {
		inv.overrides[k] = v
	}
	inv.localOverrides = make(map[string]bool, len(localOverrides))
	for _, k := range localOverrides {
		inv.localOverrides[k] = true
	}
}

func (inv *invoker) State() index.State {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.idx.State()
}

func (inv *invoker) Analyze() (model.AnalysisReport, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	snap := inv.idx.Snapshot()
	docs := inv.ldr.Skeletons()

	docIDs := make([]string, 0, len(docs))
	for id := range docs {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)

	var perAnimation []model.FoundAssetUsage
	var allIssues []model.Issue
	var missingImages []string
	var skinNames, eventNames, controlBoneNames []string
	perSkeletonStats := make([][]model.GlobalAssetStat, 0, len(docIDs))

	for _, id := range docIDs {
		doc := docs[id]
		usages, issues := inv.analyzer.Analyze(doc, snap)
		inv.applyLocalOverrides(doc.ID, usages)

		perAnimation = append(perAnimation, usages...)
		allIssues = append(allIssues, issues...)

		for _, iss := range issues {
			if iss.Kind == model.IssueAssetMissing {
				missingImages = append(missingImages, iss.Message)
			}
		}

		for _, skin := range doc.Skins {
			skinNames = append(skinNames, skin.Name)
		}
		eventNames = append(eventNames, doc.Events...)
		controlBoneNames = append(controlBoneNames, doc.ControlBoneNames()...)

		stats := inv.aggregator.MergeSkeleton(id, usages, inv.overrides, snap)
		perSkeletonStats = append(perSkeletonStats, stats)
	}

	merged := inv.aggregator.MergeAll(perSkeletonStats)
	report := inv.aggregator.BuildReport(perAnimation, merged, snap, skinNames, eventNames, controlBoneNames, missingImages, allIssues)

	inv.lastReport = report
	inv.hasReport = true
	return report, nil
}

// applyLocalOverrides marks usages whose composite key ("skeletonID|animation|slot|imageKey")
// is registered as a local override, excluding them from global maxima during
// aggregation while leaving them present in the per-animation report (spec §6
// SessionConfig.localOverrides; spec §4.3's exclusion is driven by this flag).
func (inv *invoker) applyLocalOverrides(skeletonID string, usages []model.FoundAssetUsage) {
	if len(inv.localOverrides) == 0 {
		return
	}
	for i := range usages {
		key := fmt.Sprintf("%s|%s|%s|%s", skeletonID, usages[i].Animation, usages[i].Slot, usages[i].ImageKey)
		if inv.localOverrides[key] {
			usages[i].LocalOverrideActive = true
		}
	}
}

func (inv *invoker) Plan(bufferPct float64) ([]model.OptimizationTask, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	if !inv.hasReport {
		return nil, fmt.Errorf("plan: no analysis report available, call Analyze first")
	}

	snap := inv.idx.Snapshot()
	sourcePaths := make(map[string]string, len(snap.Assets))
	for key, asset := range snap.Assets {
		sourcePaths[key] = asset.OriginalPath
	}

	return inv.planner.Plan(inv.lastReport.GlobalStats, sourcePaths, bufferPct), nil
}

// Resample fans tasks out across the worker pool, one task per worker.Task,
// with a WaitGroup barrier mirroring the teacher's per-frame compute-pool
// pattern (grounded on engine/scene's "Phase 1: parallel CPU prep"). The
// pool.SubmitTask API has no per-task cancellation hook, so ctx is checked
// before each submission rather than inside the pool (spec §5: "cancellation
// is checked between tasks ... not inside an inner pixel loop").
func (inv *invoker) Resample(ctx context.Context, tasks []model.OptimizationTask) ([]model.ResampledImage, error) {
	inv.mu.RLock()
	snap := inv.idx.Snapshot()
	inv.mu.RUnlock()

	results := make([]model.ResampledImage, len(tasks))
	var wg sync.WaitGroup

	for i, t := range tasks {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("resample: %w", ctx.Err())
		default:
		}

		asset, _, ok := snap.Find(t.ImageKey)
		if !ok {
			results[i] = model.ResampledImage{
				ImageKey: t.ImageKey,
				Issues: []model.Issue{{
					Kind:    model.IssueAssetMissing,
					Message: "source image not found in index",
					Context: t.ImageKey,
				}},
			}
			continue
		}

		wg.Add(1)
		idx, task, src := i, t, asset
		inv.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				results[idx] = inv.resampler.Resample(task.ImageKey, src.Data, task.TargetW, task.TargetH, true)
				return nil, nil
			},
		})
	}
	wg.Wait()

	return results, nil
}

func (inv *invoker) Pack(tasks []model.OptimizationTask, pageSize, padding int) ([]model.AtlasPage, []model.Issue, error) {
	pages, issues := inv.packer.Pack(tasks, pageSize, padding)
	return pages, issues, nil
}
