package resampler

import "math"

// lanczosSupport is the kernel radius in source-pixel units (spec §4.6 stage 4:
// "width 3 (radius 3 taps on each side; a 6-tap support as implemented here)").
const lanczosSupport = 3

// lanczosKernel evaluates L(x) per spec §4.6 stage 4.
func lanczosKernel(x float64) float64 {
	if x == 0 {
		return 1
	}
	ax := math.Abs(x)
	if ax >= lanczosSupport {
		return 0
	}
	piX := math.Pi * x
	return (math.Sin(piX) / piX) * (math.Sin(piX/lanczosSupport) / (piX / lanczosSupport))
}

// lanczosResize performs two separable passes (horizontal then vertical), each
// a 6-tap Lanczos-3 convolution with clamped tap indices and renormalized
// weights (spec §4.6 stage 4).
func lanczosResize(src *floatImage, srcW, srcH, dstW, dstH int) *floatImage {
	horizontal := resizeAxis(src, srcW, srcH, dstW, true)
	return resizeAxis(horizontal, dstW, srcH, dstH, false)
}

// resizeAxis resamples along one axis (horizontal when byRow is true, i.e. the
// output width changes; vertical otherwise).
func resizeAxis(src *floatImage, srcW, srcH, dstLen int, byRow bool) *floatImage {
	var dstW, dstH int
	if byRow {
		dstW, dstH = dstLen, srcH
	} else {
		dstW, dstH = srcW, dstLen
	}
	dst := newFloatImage(dstW, dstH)

	srcLen := srcW
	if !byRow {
		srcLen = srcH
	}
	ratio := float64(srcLen) / float64(dstLen)

	type tap struct {
		index  int
		weight float64
	}
	taps := make([][]tap, dstLen)
	for o := 0; o < dstLen; o++ {
		center := (float64(o)+0.5)*ratio - 0.5
		left := int(math.Floor(center)) - 2
		var row []tap
		total := 0.0
		for k := 0; k < 6; k++ {
			idx := left + k
			w := lanczosKernel(center - float64(idx))
			if w == 0 {
				continue
			}
			clamped := idx
			if clamped < 0 {
				clamped = 0
			}
			if clamped > srcLen-1 {
				clamped = srcLen - 1
			}
			row = append(row, tap{index: clamped, weight: w})
			total += w
		}
		if total != 0 {
			for i := range row {
				row[i].weight /= total
			}
		}
		taps[o] = row
	}

	if byRow {
		for y := 0; y < dstH; y++ {
			for o := 0; o < dstW; o++ {
				var acc [4]float64
				for _, t := range taps[o] {
					for c := 0; c < 4; c++ {
						acc[c] += float64(src.at(t.index, y, c)) * t.weight
					}
				}
				for c := 0; c < 4; c++ {
					dst.set(o, y, c, float32(acc[c]))
				}
			}
		}
	} else {
		for x := 0; x < dstW; x++ {
			for o := 0; o < dstH; o++ {
				var acc [4]float64
				for _, t := range taps[o] {
					for c := 0; c < 4; c++ {
						acc[c] += float64(src.at(x, t.index, c)) * t.weight
					}
				}
				for c := 0; c < 4; c++ {
					dst.set(x, o, c, float32(acc[c]))
				}
			}
		}
	}

	return dst
}
