package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/analyzer"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/index"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

func snapshotWith(key string, w, h int) index.Snapshot {
	idx := index.NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: key, PhysicalW: w, PhysicalH: h})
	return idx.Snapshot()
}

func TestMergeSkeleton_SetupPoseNeverOverridesAnimation(t *testing.T) {
	snap := snapshotWith("a.png", 100, 100)
	usages := []model.FoundAssetUsage{
		{Animation: "idle", ImageKey: "a.png", MaxScaleX: 1.5, MaxScaleY: 1.5, Skin: "default"},
		{Animation: analyzer.SetupPoseName, ImageKey: "a.png", MaxScaleX: 3, MaxScaleY: 3, Skin: "default"},
	}

	stats := NewAggregator().MergeSkeleton("hero", usages, nil, snap)
	assert.Len(t, stats, 1)
	assert.Equal(t, "idle", stats[0].SourceAnimation, "setup pose must never override a real animation regardless of area")
}

func TestMergeSkeleton_AreaComparisonPicksLarger(t *testing.T) {
	snap := snapshotWith("a.png", 100, 100)
	usages := []model.FoundAssetUsage{
		{Animation: "walk", ImageKey: "a.png", MaxScaleX: 1, MaxScaleY: 1, Skin: "default"},
		{Animation: "run", ImageKey: "a.png", MaxScaleX: 2, MaxScaleY: 2, Skin: "default"},
	}
	stats := NewAggregator().MergeSkeleton("hero", usages, nil, snap)
	assert.Len(t, stats, 1)
	assert.Equal(t, "run", stats[0].SourceAnimation)
	assert.Equal(t, 200, stats[0].MaxRenderWidth)
}

func TestMergeSkeleton_TieBreakPrefersNonDefaultSkin(t *testing.T) {
	snap := snapshotWith("a.png", 100, 100)
	usages := []model.FoundAssetUsage{
		{Animation: "idle", ImageKey: "a.png", MaxScaleX: 1, MaxScaleY: 1, Skin: "default"},
		{Animation: "idle", ImageKey: "a.png", MaxScaleX: 1, MaxScaleY: 1, Skin: "alt"},
	}
	stats := NewAggregator().MergeSkeleton("hero", usages, nil, snap)
	assert.Len(t, stats, 1)
	assert.Equal(t, "alt", stats[0].Skin)
}

func TestMergeSkeleton_LocalOverrideExcludedFromMaxima(t *testing.T) {
	snap := snapshotWith("a.png", 100, 100)
	usages := []model.FoundAssetUsage{
		{Animation: "huge", ImageKey: "a.png", MaxScaleX: 10, MaxScaleY: 10, Skin: "default", LocalOverrideActive: true},
		{Animation: "idle", ImageKey: "a.png", MaxScaleX: 1, MaxScaleY: 1, Skin: "default"},
	}
	stats := NewAggregator().MergeSkeleton("hero", usages, nil, snap)
	assert.Len(t, stats, 1)
	assert.Equal(t, "idle", stats[0].SourceAnimation)
}

func TestMergeSkeleton_OverridePercentApplied(t *testing.T) {
	snap := snapshotWith("a.png", 100, 100)
	usages := []model.FoundAssetUsage{
		{Animation: "idle", ImageKey: "a.png", MaxScaleX: 1, MaxScaleY: 1, Skin: "default"},
	}
	stats := NewAggregator().MergeSkeleton("hero", usages, map[string]float64{"a.png": 50}, snap)
	assert.Len(t, stats, 1)
	assert.Equal(t, 50, stats[0].MaxRenderWidth)
	assert.InDelta(t, 50.0, stats[0].OverridePercent, 1e-9)
}

func TestMergeAll_CrossSkeletonAreaOnly(t *testing.T) {
	perSkeleton := [][]model.GlobalAssetStat{
		{{ImageKey: "a.png", SourceSkeleton: "one", MaxRenderWidth: 100, MaxRenderHeight: 100}},
		{{ImageKey: "a.png", SourceSkeleton: "two", MaxRenderWidth: 50, MaxRenderHeight: 50}},
	}
	merged := NewAggregator().MergeAll(perSkeleton)
	assert.Len(t, merged, 1)
	assert.Equal(t, "one", merged[0].SourceSkeleton)
}

func TestBuildReport_UnusedAssetsExcludeAtlasPages(t *testing.T) {
	idx := index.NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "a.png", PhysicalW: 10, PhysicalH: 10})
	idx.AddImage(model.ImageAsset{Key: "sprites.png", PhysicalW: 256, PhysicalH: 256})
	idx.AddAtlasPageName("sprites.png")
	snap := idx.Snapshot()

	merged := []model.GlobalAssetStat{{ImageKey: "a.png"}}
	report := NewAggregator().BuildReport(nil, merged, snap, nil, nil, nil, nil, nil)
	assert.Empty(t, report.UnusedAssets, "the atlas page backing must never show up as unused")
}

func TestWithinRoundingTolerance(t *testing.T) {
	assert.True(t, WithinRoundingTolerance(199, 200))
	assert.True(t, WithinRoundingTolerance(200, 200))
	assert.False(t, WithinRoundingTolerance(198, 200))
}
