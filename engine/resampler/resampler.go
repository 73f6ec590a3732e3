// Package resampler downscales a single image through alpha-mode detection,
// iterative pyramid reduction, and separable Lanczos-3 resampling (spec §4.6).
package resampler

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// Resampler defines the public-facing interface for producing an optimized
// PNG at a target size from a source image blob.
type Resampler interface {
	// Resample decodes src, resizes it to (targetW, targetH), and encodes the
	// result to PNG. On any internal failure the original blob is returned
	// unchanged, flagged with an IssueResamplingFailed Issue, per spec §4.10's
	// "resampler exception on a single image → emit the original blob
	// unchanged for that task, continue".
	//
	// Parameters:
	//   - imageKey: the image's lookup key, copied onto the result
	//   - src: the source image bytes (PNG/JPEG/WEBP)
	//   - targetW, targetH: the target pixel dimensions
	//   - isSourcePremultiplied: a hint about the source's alpha convention
	//
	// Returns:
	//   - model.ResampledImage: the resized PNG (or the original blob on failure) plus any Issues
	Resample(imageKey string, src []byte, targetW, targetH int, isSourcePremultiplied bool) model.ResampledImage
}

type resamplerImpl struct{}

// NewResampler constructs a Resampler. Each invocation is self-contained and
// safe to call concurrently from multiple goroutines (spec §5).
func NewResampler() Resampler {
	return &resamplerImpl{}
}

var _ Resampler = (*resamplerImpl)(nil)

func (r *resamplerImpl) Resample(imageKey string, src []byte, targetW, targetH int, isSourcePremultiplied bool) model.ResampledImage {
	out, err := resample(src, targetW, targetH, isSourcePremultiplied)
	if err != nil {
		return model.ResampledImage{
			ImageKey: imageKey,
			Width:    targetW,
			Height:   targetH,
			PNG:      src,
			Issues: []model.Issue{{
				Kind:    model.IssueResamplingFailed,
				Message: err.Error(),
				Context: imageKey,
			}},
		}
	}
	return model.ResampledImage{ImageKey: imageKey, Width: targetW, Height: targetH, PNG: out}
}

// resample runs the full stage 1-7 pipeline from spec §4.6.
func resample(src []byte, targetW, targetH int, isSourcePremultiplied bool) ([]byte, error) {
	buf, srcW, srcH, err := rawImport(src)
	if err != nil {
		return nil, fmt.Errorf("raw import: %w", err)
	}

	straightAlpha := !isSourcePremultiplied || detectStraightAlpha(buf)

	buf, srcW, srcH = pyramidReduce(buf, srcW, srcH, targetW, targetH)

	buf = lanczosResize(buf, srcW, srcH, targetW, targetH)

	postProcessAlpha(buf, straightAlpha)

	dither(buf)

	return exportPNG(buf, targetW, targetH)
}

// floatImage is a flat, row-major RGBA float32 buffer: width*height*4 values
// in [0, 255], widened from the decoded 8-bit source (spec §4.6 stage 1).
type floatImage struct {
	pix    []float32
	w, h   int
}

func newFloatImage(w, h int) *floatImage {
	return &floatImage{pix: make([]float32, w*h*4), w: w, h: h}
}

func (f *floatImage) at(x, y, c int) float32 {
	return f.pix[(y*f.w+x)*4+c]
}

func (f *floatImage) set(x, y, c int, v float32) {
	f.pix[(y*f.w+x)*4+c] = v
}

// rawImport decodes src without implicit premultiplication and widens every
// channel to float32 (spec §4.6 stage 1).
func rawImport(src []byte) (*floatImage, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, 0, 0, err
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	f := newFloatImage(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// image.Color.RGBA() returns premultiplied, 16-bit values; convert
			// to straight 8-bit so the pipeline starts from a known baseline.
			nr, ng, nb, na := straighten16(r, g, b, a)
			f.set(x, y, 0, nr)
			f.set(x, y, 1, ng)
			f.set(x, y, 2, nb)
			f.set(x, y, 3, na)
		}
	}
	return f, w, h, nil
}

func straighten16(r, g, b, a uint32) (float32, float32, float32, float32) {
	af := float32(a) / 257
	if a == 0 {
		return 0, 0, 0, 0
	}
	rf := float32(r) / 257 * (255 / af)
	gf := float32(g) / 257 * (255 / af)
	bf := float32(b) / 257 * (255 / af)
	return clamp255(rf), clamp255(gf), clamp255(bf), af
}

func clamp255(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// exportPNG re-uploads the buffer to an 8-bit RGBA surface and encodes to PNG
// (spec §4.6 stage 7). The Y-flip the spec describes restores a GPU surface's
// bottom-left origin to the image format's top-left convention; this pipeline
// keeps the buffer top-left throughout (stage 1 never flips it in the other
// direction), so no flip is needed here to stay round-trip-correct.
func exportPNG(buf *floatImage, w, h int) ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := quantize(buf.at(x, y, 0))
			g := quantize(buf.at(x, y, 1))
			b := quantize(buf.at(x, y, 2))
			a := quantize(buf.at(x, y, 3))
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: a})
		}
	}
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func quantize(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
