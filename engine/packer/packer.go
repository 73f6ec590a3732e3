// Package packer implements the MaxRects Best-Short-Side-Fit atlas packer and
// the atlas unpacker that extracts standalone sprites from atlas pages (spec
// §4.5, §4.8).
package packer

import (
	"fmt"
	"sort"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// Packer defines the public-facing interface for placing a task list onto one
// or more fixed-size atlas pages.
type Packer interface {
	// Pack places tasks onto pages of size maxSize x maxSize, separated by
	// padding pixels on the right and bottom of each rect. Tasks are sorted
	// by decreasing target height before placement; a task whose target
	// exceeds maxSize on either axis is excluded and reported via
	// IssuePackingOversize rather than aborting the run (spec §4.8, §4.10).
	//
	// Parameters:
	//   - tasks: the planned resize/copy tasks to place
	//   - maxSize: the page's width and height, in pixels
	//   - padding: the minimum gap enforced between placed rects
	//
	// Returns:
	//   - []model.AtlasPage: one entry per page opened, in fill order
	//   - []model.Issue: one IssuePackingOversize per rejected task
	Pack(tasks []model.OptimizationTask, maxSize, padding int) ([]model.AtlasPage, []model.Issue)
}

type packerImpl struct{}

// NewPacker constructs a Packer. Each call to Pack is self-contained and safe
// to invoke concurrently across independent task batches (spec §5).
func NewPacker() Packer {
	return &packerImpl{}
}

var _ Packer = (*packerImpl)(nil)

func (p *packerImpl) Pack(tasks []model.OptimizationTask, maxSize, padding int) ([]model.AtlasPage, []model.Issue) {
	var issues []model.Issue
	fitting := make([]model.OptimizationTask, 0, len(tasks))
	for _, t := range tasks {
		if t.TargetW > maxSize || t.TargetH > maxSize {
			issues = append(issues, model.Issue{
				Kind:    model.IssuePackingOversize,
				Message: fmt.Sprintf("target %dx%d exceeds page size %d", t.TargetW, t.TargetH, maxSize),
				Context: t.ImageKey,
			})
			continue
		}
		fitting = append(fitting, t)
	}

	sort.SliceStable(fitting, func(i, j int) bool {
		return fitting[i].TargetH > fitting[j].TargetH
	})

	var pages []model.AtlasPage
	remaining := fitting
	for len(remaining) > 0 {
		page := newPage(len(pages), maxSize)
		var leftover []model.OptimizationTask
		usedArea := 0
		for _, t := range remaining {
			if rect, ok := page.insert(t.ImageKey, t.TargetW, t.TargetH, padding); ok {
				page.rects = append(page.rects, rect)
				usedArea += rect.Width * rect.Height
				continue
			}
			leftover = append(leftover, t)
		}

		if len(page.rects) == 0 {
			// Nothing fit on a fresh page: every remaining task is
			// individually pageSize-bounded but collectively unplaceable
			// here (padding starvation on a degenerate page size). Report
			// and drop them rather than spin forever.
			for _, t := range leftover {
				issues = append(issues, model.Issue{
					Kind:    model.IssuePackingOversize,
					Message: fmt.Sprintf("could not place %dx%d on an empty page of size %d", t.TargetW, t.TargetH, maxSize),
					Context: t.ImageKey,
				})
			}
			break
		}

		pages = append(pages, model.AtlasPage{
			Index:      page.index,
			Width:      maxSize,
			Height:     maxSize,
			Rects:      page.rects,
			Efficiency: float64(usedArea) / float64(maxSize*maxSize),
		})
		remaining = leftover
	}

	return pages, issues
}

// freeRect is one free axis-aligned rectangle within a page's remaining space.
type freeRect struct {
	x, y, w, h int
}

func (f freeRect) fits(w, h int) bool {
	return f.w >= w && f.h >= h
}

// page tracks one atlas page's free-rectangle list during packing.
type page struct {
	index int
	free  []freeRect
	rects []model.PackedRect
}

func newPage(index, size int) *page {
	return &page{index: index, free: []freeRect{{x: 0, y: 0, w: size, h: size}}}
}

// insert finds the free rectangle with the minimum short-side difference
// that still fits (w, h) inflated by padding, places the rect there, splits
// every intersecting free rect into its residuals, and prunes free rects now
// contained in another (spec §4.8).
func (p *page) insert(imageKey string, w, h, padding int) (model.PackedRect, bool) {
	reservedW, reservedH := w+padding, h+padding

	best := -1
	bestScore := -1
	for i, f := range p.free {
		if !f.fits(reservedW, reservedH) {
			continue
		}
		dw, dh := abs(f.w-reservedW), abs(f.h-reservedH)
		score := dw
		if dh < score {
			score = dh
		}
		if best == -1 || score < bestScore {
			best, bestScore = i, score
		}
	}
	if best == -1 {
		return model.PackedRect{}, false
	}

	chosen := p.free[best]
	placed := freeRect{x: chosen.x, y: chosen.y, w: reservedW, h: reservedH}

	var next []freeRect
	for _, f := range p.free {
		if !overlaps(f, placed) {
			next = append(next, f)
			continue
		}
		next = append(next, split(f, placed)...)
	}
	p.free = pruneContained(next)

	return model.PackedRect{
		ImageKey:  imageKey,
		PageIndex: p.index,
		X:         chosen.x,
		Y:         chosen.y,
		Width:     w,
		Height:    h,
	}, true
}

func overlaps(a, b freeRect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x && a.y < b.y+b.h && a.y+a.h > b.y
}

// split produces the up-to-four residual rectangles of a (top, bottom, left,
// right strip) when placed overlaps with f.
func split(f, placed freeRect) []freeRect {
	var out []freeRect
	if placed.y > f.y {
		out = append(out, freeRect{x: f.x, y: f.y, w: f.w, h: placed.y - f.y})
	}
	if f.y+f.h > placed.y+placed.h {
		out = append(out, freeRect{x: f.x, y: placed.y + placed.h, w: f.w, h: f.y + f.h - (placed.y + placed.h)})
	}
	if placed.x > f.x {
		out = append(out, freeRect{x: f.x, y: f.y, w: placed.x - f.x, h: f.h})
	}
	if f.x+f.w > placed.x+placed.w {
		out = append(out, freeRect{x: placed.x + placed.w, y: f.y, w: f.x + f.w - (placed.x + placed.w), h: f.h})
	}
	return out
}

// pruneContained removes every free rect fully contained within another,
// O(n^2) but required for correctness at 2k-4k page sizes (spec §4.8).
func pruneContained(rects []freeRect) []freeRect {
	var out []freeRect
	for i, a := range rects {
		contained := false
		for j, b := range rects {
			if i == j {
				continue
			}
			if containedIn(a, b) && !(a == b && i < j) {
				contained = true
				break
			}
		}
		if !contained && a.w > 0 && a.h > 0 {
			out = append(out, a)
		}
	}
	return out
}

func containedIn(a, b freeRect) bool {
	return a.x >= b.x && a.y >= b.y && a.x+a.w <= b.x+b.w && a.y+a.h <= b.y+b.h
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
