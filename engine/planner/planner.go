// Package planner computes the buffered resize/copy task list from merged
// analysis stats, without reading any pixel data (spec §4.7).
package planner

import (
	"math"
	"sort"

	"github.com/fvbommel/sortorder"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// Planner defines the public-facing interface for turning merged image stats
// into an ordered optimization task list.
type Planner interface {
	// Plan computes one OptimizationTask per stat, applying the buffer
	// percentage, clamping to physical bounds, and ordering resizes before
	// copies in natural-numeric alphabetical order (spec §4.7).
	//
	// Parameters:
	//   - stats: the merged per-image stats to plan against
	//   - sourcePaths: image key → original filesystem path, used to populate SourcePath
	//   - bufferPct: the user-chosen safety buffer percentage (0 = none)
	//
	// Returns:
	//   - []model.OptimizationTask: the ordered task list
	Plan(stats []model.GlobalAssetStat, sourcePaths map[string]string, bufferPct float64) []model.OptimizationTask
}

type plannerImpl struct{}

// NewPlanner constructs a Planner. Like the analyzer and aggregator, it is a
// pure function over its inputs (spec §4.9).
func NewPlanner() Planner {
	return &plannerImpl{}
}

var _ Planner = (*plannerImpl)(nil)

func (p *plannerImpl) Plan(stats []model.GlobalAssetStat, sourcePaths map[string]string, bufferPct float64) []model.OptimizationTask {
	tasks := make([]model.OptimizationTask, 0, len(stats))

	for _, s := range stats {
		targetW := bufferedTarget(s.MaxRenderWidth, bufferPct)
		targetH := bufferedTarget(s.MaxRenderHeight, bufferPct)

		// Clamp down to physical dimensions, then up to a 1x1 minimum (spec §4.7).
		if s.PhysicalW > 0 && targetW > s.PhysicalW {
			targetW = s.PhysicalW
		}
		if s.PhysicalH > 0 && targetH > s.PhysicalH {
			targetH = s.PhysicalH
		}
		if targetW < 1 {
			targetW = 1
		}
		if targetH < 1 {
			targetH = 1
		}

		isResize := targetW != s.PhysicalW || targetH != s.PhysicalH
		reduction := 0.0
		if s.PhysicalW > 0 && s.PhysicalH > 0 {
			srcArea := float64(s.PhysicalW * s.PhysicalH)
			dstArea := float64(targetW * targetH)
			reduction = (1 - dstArea/srcArea) * 100
		}

		tasks = append(tasks, model.OptimizationTask{
			ImageKey:         s.ImageKey,
			SourcePath:       sourcePaths[s.ImageKey],
			PhysicalW:        s.PhysicalW,
			PhysicalH:        s.PhysicalH,
			TargetW:          targetW,
			TargetH:          targetH,
			IsResize:         isResize,
			ReductionPercent: reduction,
		})
	}

	orderTasks(tasks)
	return tasks
}

// bufferedTarget computes ceil(maxRender * (1 + bufferPct/100)) (spec §4.7).
func bufferedTarget(maxRender int, bufferPct float64) int {
	buffered := float64(maxRender) * (100 + bufferPct) / 100
	return int(math.Ceil(buffered))
}

// orderTasks sorts resizes before copies, each group in natural-numeric
// alphabetical order by image key (spec §4.7).
func orderTasks(tasks []model.OptimizationTask) {
	sort.Sort(taskSlice(tasks))
}

// taskSlice adapts []model.OptimizationTask to sort.Interface, comparing image
// keys with sortorder.NaturalLess, with resizes sorted ahead of copies as a primary key.
type taskSlice []model.OptimizationTask

func (t taskSlice) Len() int      { return len(t) }
func (t taskSlice) Swap(i, j int) { t[i], t[j] = t[j], t[i] }
func (t taskSlice) Less(i, j int) bool {
	if t[i].IsResize != t[j].IsResize {
		return t[i].IsResize // resizes first
	}
	return sortorder.NaturalLess(t[i].ImageKey, t[j].ImageKey)
}
