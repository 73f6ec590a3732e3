package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

func TestPlan_BufferedAndClamped(t *testing.T) {
	stats := []model.GlobalAssetStat{
		{ImageKey: "a.png", MaxRenderWidth: 100, MaxRenderHeight: 100, PhysicalW: 512, PhysicalH: 512},
	}
	tasks := NewPlanner().Plan(stats, nil, 10)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 110, tasks[0].TargetW) // ceil(100 * 1.1)
	assert.Equal(t, 110, tasks[0].TargetH)
	assert.True(t, tasks[0].IsResize)
}

func TestPlan_ClampsDownToPhysicalSize(t *testing.T) {
	stats := []model.GlobalAssetStat{
		{ImageKey: "a.png", MaxRenderWidth: 1000, MaxRenderHeight: 1000, PhysicalW: 256, PhysicalH: 256},
	}
	tasks := NewPlanner().Plan(stats, nil, 0)
	assert.Equal(t, 256, tasks[0].TargetW)
	assert.Equal(t, 256, tasks[0].TargetH)
	assert.False(t, tasks[0].IsResize)
}

func TestPlan_OrdersResizesBeforeCopiesNaturally(t *testing.T) {
	stats := []model.GlobalAssetStat{
		{ImageKey: "img10.png", MaxRenderWidth: 10, MaxRenderHeight: 10, PhysicalW: 256, PhysicalH: 256},
		{ImageKey: "img2.png", MaxRenderWidth: 10, MaxRenderHeight: 10, PhysicalW: 256, PhysicalH: 256},
		{ImageKey: "img1.png", MaxRenderWidth: 10, MaxRenderHeight: 10, PhysicalW: 256, PhysicalH: 256},
		{ImageKey: "img0.png", MaxRenderWidth: 256, MaxRenderHeight: 256, PhysicalW: 256, PhysicalH: 256},
	}
	tasks := NewPlanner().Plan(stats, nil, 0)
	order := []string{"img1.png", "img2.png", "img10.png", "img0.png"}
	for i, name := range order {
		assert.Equal(t, name, tasks[i].ImageKey)
	}
	assert.True(t, tasks[0].IsResize)
	assert.True(t, tasks[1].IsResize)
	assert.True(t, tasks[2].IsResize)
	assert.False(t, tasks[3].IsResize, "copies sort after every resize")
}

func TestPlan_ReductionPercent(t *testing.T) {
	stats := []model.GlobalAssetStat{
		{ImageKey: "a.png", MaxRenderWidth: 256, MaxRenderHeight: 256, PhysicalW: 512, PhysicalH: 512},
	}
	tasks := NewPlanner().Plan(stats, nil, 0)
	assert.InDelta(t, 75.0, tasks[0].ReductionPercent, 1e-6) // (512*512 - 256*256)/(512*512)
}
