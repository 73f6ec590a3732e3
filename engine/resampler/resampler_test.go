package resampler

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// Invariant 7 — target == source dimensions leaves every channel unchanged to
// within +/-1, a solid-color source pinning the margin dithering could move a
// quantized value by.
func TestResample_IdentitySizeRoundTrip(t *testing.T) {
	src := solidPNG(t, 32, 32, color.NRGBA{R: 120, G: 64, B: 200, A: 255})

	out := NewResampler().Resample("hero.png", src, 32, 32, false)
	assert.Empty(t, out.Issues)
	assert.Equal(t, 32, out.Width)
	assert.Equal(t, 32, out.Height)

	decoded, err := png.Decode(bytes.NewReader(out.PNG))
	require.NoError(t, err)
	bounds := decoded.Bounds()
	require.Equal(t, 32, bounds.Dx())
	require.Equal(t, 32, bounds.Dy())

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			r, g, b, a := decoded.At(x, y).RGBA()
			assert.InDelta(t, 120, int(r/257), 1)
			assert.InDelta(t, 64, int(g/257), 1)
			assert.InDelta(t, 200, int(b/257), 1)
			assert.InDelta(t, 255, int(a/257), 1)
		}
	}
}

func TestResample_DownscalesToRequestedSize(t *testing.T) {
	src := solidPNG(t, 64, 64, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	out := NewResampler().Resample("hero.png", src, 16, 16, false)
	assert.Empty(t, out.Issues)
	assert.Equal(t, 16, out.Width)
	assert.Equal(t, 16, out.Height)

	decoded, err := png.Decode(bytes.NewReader(out.PNG))
	require.NoError(t, err)
	assert.Equal(t, 16, decoded.Bounds().Dx())
	assert.Equal(t, 16, decoded.Bounds().Dy())
}

func TestResample_MalformedSourceFallsBackToOriginalBlob(t *testing.T) {
	bogus := []byte("not an image")
	out := NewResampler().Resample("broken.png", bogus, 8, 8, false)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, "broken.png", out.Issues[0].Context)
	assert.Equal(t, bogus, out.PNG, "the original blob is returned unchanged on resample failure")
}
