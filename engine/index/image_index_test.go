package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

func TestFind_ExactMatchWins(t *testing.T) {
	idx := NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "sprites/hero.png", PhysicalW: 10, PhysicalH: 10})

	asset, ambiguous, ok := idx.Find("sprites/hero.png")
	require.True(t, ok)
	assert.False(t, ambiguous)
	assert.Equal(t, "sprites/hero.png", asset.Key)
}

func TestFind_ExtensionAppendedMatch(t *testing.T) {
	idx := NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "sprites/hero.png", PhysicalW: 10, PhysicalH: 10})

	asset, ambiguous, ok := idx.Find("sprites/hero")
	require.True(t, ok)
	assert.False(t, ambiguous)
	assert.Equal(t, "sprites/hero.png", asset.Key)
}

func TestFind_ShortestSuffixMatch(t *testing.T) {
	idx := NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "assets/skins/default/hero.png", PhysicalW: 10, PhysicalH: 10})

	asset, ambiguous, ok := idx.Find("hero.png")
	require.True(t, ok)
	assert.False(t, ambiguous)
	assert.Equal(t, "assets/skins/default/hero.png", asset.Key)
}

func TestFind_AmbiguousSuffixFlagged(t *testing.T) {
	idx := NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "skins/a/hero.png", PhysicalW: 10, PhysicalH: 10})
	idx.AddImage(model.ImageAsset{Key: "skins/b/hero.png", PhysicalW: 20, PhysicalH: 20})

	_, ambiguous, ok := idx.Find("hero.png")
	require.True(t, ok)
	assert.True(t, ambiguous, "two equally-short suffix matches must be flagged ambiguous")
}

func TestFind_NotFound(t *testing.T) {
	idx := NewImageIndex()
	_, ambiguous, ok := idx.Find("nothing.png")
	assert.False(t, ok)
	assert.False(t, ambiguous)
}

func TestAddCanonicalSize_AdoptedOntoExistingAsset(t *testing.T) {
	idx := NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "hero.png", PhysicalW: 512, PhysicalH: 512})
	idx.AddCanonicalSize("hero.png", 64, 64)

	asset, _, ok := idx.Find("hero.png")
	require.True(t, ok)
	assert.Equal(t, 64, asset.CanonicalW)
	assert.Equal(t, 64, asset.CanonicalH)
}

func TestAddCanonicalSize_AdoptedOntoLaterRegisteredAsset(t *testing.T) {
	idx := NewImageIndex()
	idx.AddCanonicalSize("hero.png", 64, 64)
	idx.AddImage(model.ImageAsset{Key: "hero.png", PhysicalW: 512, PhysicalH: 512})

	asset, _, ok := idx.Find("hero.png")
	require.True(t, ok)
	assert.Equal(t, 64, asset.CanonicalW)
	assert.Equal(t, 64, asset.CanonicalH)
}

func TestUnusedAssets_ExcludesAtlasPagesAndUsedKeys(t *testing.T) {
	idx := NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "hero.png"})
	idx.AddImage(model.ImageAsset{Key: "orphan.png"})
	idx.AddImage(model.ImageAsset{Key: "sprites.png"})
	idx.AddAtlasPageName("sprites.png")
	snap := idx.Snapshot()

	unused := snap.UnusedAssets(map[string]bool{"hero.png": true})
	assert.Equal(t, []string{"orphan.png"}, unused)
}

func TestState_Transitions(t *testing.T) {
	idx := NewImageIndex()
	assert.Equal(t, StateEmpty, idx.State())

	idx.AddImage(model.ImageAsset{Key: "a.png"})
	assert.Equal(t, StateIngesting, idx.State())

	_ = idx.Snapshot()
	assert.Equal(t, StateReady, idx.State())

	idx.Clear()
	assert.Equal(t, StateEmpty, idx.State())
}
