package packer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "golang.org/x/image/webp"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// Unpacker defines the public-facing interface for extracting standalone
// sprite PNGs from atlas pages (spec §4.5).
type Unpacker interface {
	// Unpack decodes each page image in pages (keyed by page name), and for
	// every region in metadata draws the logical (width, height) sprite into
	// its own PNG, applying the 90-degree-clockwise UV restore when the
	// region is rotated. A page with no matching entry in pages yields one
	// IssueMalformedInput for that page, and its regions are skipped, per spec §4.10 ("missing atlas page image -> skip, do not
	// fail the run").
	//
	// Parameters:
	//   - metadata: the parsed atlas regions to extract
	//   - pages: page name -> raw page image bytes
	//
	// Returns:
	//   - map[string][]byte: region name (".png" appended if absent) -> extracted PNG bytes
	//   - []model.Issue: non-fatal problems encountered
	Unpack(metadata model.AtlasMetadata, pages map[string][]byte) (map[string][]byte, []model.Issue)
}

type unpackerImpl struct{}

// NewUnpacker constructs an Unpacker. Pixel extraction is a direct buffer
// copy rather than a GPU-surface blit: the spec's "or equivalent CPU
// routine" alternative is taken here because it is the only way to guarantee
// the "preserves exact pixels; no filtering introduced" requirement (spec
// §4.5) without depending on a sampler's rounding behavior.
func NewUnpacker() Unpacker {
	return &unpackerImpl{}
}

var _ Unpacker = (*unpackerImpl)(nil)

func (u *unpackerImpl) Unpack(metadata model.AtlasMetadata, pages map[string][]byte) (map[string][]byte, []model.Issue) {
	out := make(map[string][]byte, len(metadata.Regions))
	var issues []model.Issue

	decoded := make(map[string]image.Image, len(pages))
	regionsByPage := make(map[string][]model.AtlasRegion)
	for _, r := range metadata.Regions {
		regionsByPage[r.PageName] = append(regionsByPage[r.PageName], r)
	}

	for pageName, regions := range regionsByPage {
		raw, ok := pages[pageName]
		if !ok {
			issues = append(issues, model.Issue{
				Kind:    model.IssueMalformedInput,
				Message: "missing atlas page image",
				Context: pageName,
			})
			continue
		}
		img, ok := decoded[pageName]
		if !ok {
			var err error
			img, _, err = image.Decode(bytes.NewReader(raw))
			if err != nil {
				issues = append(issues, model.Issue{
					Kind:    model.IssueMalformedInput,
					Message: fmt.Sprintf("decode atlas page: %v", err),
					Context: pageName,
				})
				continue
			}
			decoded[pageName] = img
		}

		for _, r := range regions {
			key := r.Name
			if !hasKnownImageExtension(key) {
				key += ".png"
			}
			png, err := extractRegion(img, r)
			if err != nil {
				issues = append(issues, model.Issue{
					Kind:    model.IssueMalformedInput,
					Message: err.Error(),
					Context: r.Name,
				})
				continue
			}
			out[key] = png
		}
	}

	return out, issues
}

// extractRegion draws one region's logical (width, height) sprite from the
// decoded page, applying the 90-degree-clockwise restore described in spec
// §4.5 when the region is stored rotated: "canvas top -> source left, canvas
// left -> source bottom, canvas right -> source top, canvas bottom -> source
// right".
func extractRegion(page image.Image, r model.AtlasRegion) ([]byte, error) {
	bounds := page.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))

	for cy := 0; cy < r.Height; cy++ {
		for cx := 0; cx < r.Width; cx++ {
			var sx, sy int
			if r.Rotated {
				// Stored rectangle occupies (r.Height x r.Width) page
				// pixels (StoredSize). Inverting the 90-degree-CCW pack
				// rotation: stored column = cy, stored row = r.Width-1-cx.
				sx = r.X + cy
				sy = r.Y + (r.Width - 1 - cx)
			} else {
				sx = r.X + cx
				sy = r.Y + cy
			}
			px := bounds.Min.X + sx
			py := bounds.Min.Y + sy
			if px < bounds.Min.X || px >= bounds.Max.X || py < bounds.Min.Y || py >= bounds.Max.Y {
				return nil, fmt.Errorf("region %q samples outside page bounds", r.Name)
			}
			dst.SetNRGBA(cx, cy, samplePixel(page, px, py))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode region %q: %w", r.Name, err)
	}
	return buf.Bytes(), nil
}

// samplePixel reads one page pixel as exact, un-premultiplied color. The
// common decode result for a PNG atlas page is *image.NRGBA, which already
// stores straight alpha; reading it directly avoids the lossy premultiply/
// un-premultiply round trip that image.Image.At(...).RGBA() forces on every
// caller (spec §4.5: "preserves exact pixels; no filtering is introduced").
// Other concrete image types fall back to the premultiplied path.
func samplePixel(page image.Image, x, y int) color.NRGBA {
	switch p := page.(type) {
	case *image.NRGBA:
		return p.NRGBAAt(x, y)
	case *image.NRGBA64:
		c := p.NRGBA64At(x, y)
		return color.NRGBA{R: uint8(c.R >> 8), G: uint8(c.G >> 8), B: uint8(c.B >> 8), A: uint8(c.A >> 8)}
	default:
		r, g, b, a := page.At(x, y).RGBA()
		return straightenNRGBA(r, g, b, a)
	}
}

func straightenNRGBA(r, g, b, a uint32) color.NRGBA {
	if a == 0 {
		return color.NRGBA{}
	}
	af := float64(a) / 65535
	return color.NRGBA{
		R: uint8(float64(r) / 257 / af),
		G: uint8(float64(g) / 257 / af),
		B: uint8(float64(b) / 257 / af),
		A: uint8(a / 257),
	}
}

func hasKnownImageExtension(name string) bool {
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp"} {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return true
		}
	}
	return false
}
