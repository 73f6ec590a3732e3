package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/index"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

const minimalSkeletonJSON = `{
  "bones": [{"name": "root"}],
  "slots": [{"name": "body", "bone": "root", "attachment": "hero"}],
  "skins": {
    "default": {
      "body": {
        "hero": {"width": 300, "height": 400}
      }
    }
  },
  "animations": {}
}`

// Attachment-declared canonical dimensions (no "skeleton.images" map present)
// must be recorded on the document's CanonicalSizes, keyed by attachment path.
func TestParse_AttachmentDimensionsPopulateCanonicalSizes(t *testing.T) {
	doc, err := newSkeletonParser().Parse("hero", []byte(minimalSkeletonJSON))
	require.NoError(t, err)

	size, ok := doc.CanonicalSizes["hero"]
	require.True(t, ok, "attachment-declared width/height must populate CanonicalSizes")
	assert.Equal(t, [2]int{300, 400}, size)
}

// An explicit "skeleton.images" entry overrides the attachment's own declared
// dimensions for the same path, matching applyCanonicalSize's documented
// precedence (attachment-sourced sizes applied first, images-map last).
func TestParse_SkeletonImagesOverridesAttachmentDimensions(t *testing.T) {
	text := `{
  "skeleton": {"images": {"hero": {"width": 999, "height": 888}}},
  "bones": [{"name": "root"}],
  "slots": [{"name": "body", "bone": "root", "attachment": "hero"}],
  "skins": {
    "default": {
      "body": {
        "hero": {"width": 300, "height": 400}
      }
    }
  },
  "animations": {}
}`
	doc, err := newSkeletonParser().Parse("hero", []byte(text))
	require.NoError(t, err)

	size, ok := doc.CanonicalSizes["hero"]
	require.True(t, ok)
	assert.Equal(t, [2]int{999, 888}, size)
}

// End-to-end: an image whose physical pixel dimensions differ from its
// attachment-declared canonical dimensions, and no "skeleton.images" entry,
// must still resolve to the declared canonical size once ingested.
func TestIngest_AttachmentCanonicalSizeAppliedToPhysicallyDifferentImage(t *testing.T) {
	idx := index.NewImageIndex()
	idx.AddImage(model.ImageAsset{Key: "hero.png", PhysicalW: 64, PhysicalH: 64})

	ldr := NewLoader()
	_, issues, err := ldr.Ingest([]model.FileAsset{
		{Path: "hero.json", Data: []byte(minimalSkeletonJSON)},
	}, idx)
	require.NoError(t, err)
	assert.Empty(t, issues)

	asset, _, ok := idx.Find("hero.png")
	require.True(t, ok)
	assert.Equal(t, 64, asset.PhysicalW)
	assert.Equal(t, 64, asset.PhysicalH)
	assert.Equal(t, 300, asset.CanonicalW, "canonical size must come from the attachment's declared width, not the physical image")
	assert.Equal(t, 400, asset.CanonicalH)
}
