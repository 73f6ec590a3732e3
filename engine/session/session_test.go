package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/index"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/loader"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/packer"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/resampler"
)

func heroDoc() *model.SkeletonDocument {
	return &model.SkeletonDocument{
		ID:    "hero",
		Bones: []model.Bone{{Name: "root"}},
		Slots: []model.Slot{{Name: "body", Bone: "root", DefaultAttachment: "a.png"}},
		Skins: []model.Skin{{
			Name: "default",
			Slots: map[string]map[string]model.AttachmentDef{
				"body": {"a.png": {Name: "a.png", Width: 100, Height: 100, Kind: model.AttachmentRegion}},
			},
		}},
		Animations: []model.Animation{
			{
				Name: "idle",
				SlotAttachments: []model.SlotAttachmentTimeline{{
					Slot: "body",
					Keys: []model.AttachmentKey{{Time: 0, AttachmentName: "a.png"}},
				}},
			},
			{
				Name: "huge",
				BoneScales: []model.BoneTimeline{{
					Bone: "root",
					Keys: []model.Keyframe{{Time: 0, ScaleX: 10, ScaleY: 10, Curve: model.CurveLinear}},
				}},
				SlotAttachments: []model.SlotAttachmentTimeline{{
					Slot: "body",
					Keys: []model.AttachmentKey{{Time: 0, AttachmentName: "a.png"}},
				}},
			},
		},
	}
}

func newSeededInvoker() Invoker {
	idx := index.NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "a.png", PhysicalW: 100, PhysicalH: 100, OriginalPath: "a.png"})
	ldr := loader.NewLoader(loader.WithSkeleton(heroDoc()))
	return NewInvoker(WithImageIndex(idx), WithLoader(ldr))
}

func TestPlan_RequiresPriorAnalyze(t *testing.T) {
	inv := NewInvoker()
	_, err := inv.Plan(0)
	assert.Error(t, err)
}

func TestAnalyze_AppliesLocalOverrides(t *testing.T) {
	inv := newSeededInvoker()
	inv.SetOverrides(nil, []string{"hero|huge|body|a.png"})

	report, err := inv.Analyze()
	require.NoError(t, err)
	require.Len(t, report.GlobalStats, 1)
	assert.Equal(t, "idle", report.GlobalStats[0].SourceAnimation,
		"the huge animation's usage was locally overridden and must not win the global maximum")
}

func TestAnalyze_WithoutOverridePicksLargerAnimation(t *testing.T) {
	inv := newSeededInvoker()

	report, err := inv.Analyze()
	require.NoError(t, err)
	require.Len(t, report.GlobalStats, 1)
	assert.Equal(t, "huge", report.GlobalStats[0].SourceAnimation)
}

func TestResample_MissingAssetReportsIssue(t *testing.T) {
	inv := NewInvoker(WithImageIndex(index.NewImageIndex()))
	tasks := []model.OptimizationTask{{ImageKey: "missing.png", TargetW: 10, TargetH: 10}}

	results, err := inv.Resample(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Issues, 1)
	assert.Equal(t, model.IssueAssetMissing, results[0].Issues[0].Kind)
}

type recordingResampler struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingResampler) Resample(imageKey string, src []byte, targetW, targetH int, isSourcePremultiplied bool) model.ResampledImage {
	r.mu.Lock()
	r.calls = append(r.calls, imageKey)
	r.mu.Unlock()
	return model.ResampledImage{ImageKey: imageKey, Width: targetW, Height: targetH, PNG: src}
}

var _ resampler.Resampler = (*recordingResampler)(nil)

func TestResample_InvokesResamplerForEveryFoundAsset(t *testing.T) {
	idx := index.NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "a.png", Data: []byte("a-bytes"), PhysicalW: 10, PhysicalH: 10})
	idx.AddImage(model.ImageAsset{Key: "b.png", Data: []byte("b-bytes"), PhysicalW: 10, PhysicalH: 10})
	rec := &recordingResampler{}
	inv := NewInvoker(WithImageIndex(idx), WithResampler(rec))

	tasks := []model.OptimizationTask{
		{ImageKey: "a.png", TargetW: 5, TargetH: 5},
		{ImageKey: "b.png", TargetW: 5, TargetH: 5},
	}
	results, err := inv.Resample(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.ElementsMatch(t, []string{"a.png", "b.png"}, rec.calls)
	for _, r := range results {
		assert.Empty(t, r.Issues)
	}
}

func TestResample_CancelledContextStopsSubmission(t *testing.T) {
	idx := index.NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "a.png", Data: []byte("a"), PhysicalW: 10, PhysicalH: 10})
	inv := NewInvoker(WithImageIndex(idx))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []model.OptimizationTask{{ImageKey: "a.png", TargetW: 5, TargetH: 5}}
	_, err := inv.Resample(ctx, tasks)
	assert.Error(t, err)
}

type fakePacker struct {
	pages  []model.AtlasPage
	issues []model.Issue
}

func (f *fakePacker) Pack(tasks []model.OptimizationTask, maxSize, padding int) ([]model.AtlasPage, []model.Issue) {
	return f.pages, f.issues
}

var _ packer.Packer = (*fakePacker)(nil)

func TestPack_DelegatesToPacker(t *testing.T) {
	fp := &fakePacker{
		pages:  []model.AtlasPage{{Index: 0, Width: 1024, Height: 1024}},
		issues: []model.Issue{{Kind: model.IssuePackingOversize, Context: "x.png"}},
	}
	inv := NewInvoker(WithPacker(fp))

	pages, issues, err := inv.Pack(nil, 1024, 2)
	require.NoError(t, err)
	assert.Equal(t, fp.pages, pages)
	assert.Equal(t, fp.issues, issues)
}

func TestState_ReflectsIndexLifecycle(t *testing.T) {
	idx := index.NewImageIndex()
	inv := NewInvoker(WithImageIndex(idx))
	assert.Equal(t, index.StateEmpty, inv.State())

	idx.AddImage(model.ImageAsset{Key: "a.png"})
	assert.Equal(t, index.StateIngesting, inv.State())
}
