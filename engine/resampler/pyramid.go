package resampler

// pyramidReduce halves buf repeatedly, averaging each 2x2 block per channel,
// while both source dimensions still exceed 2x the target (spec §4.6 stage 3).
// Channels are reduced independently, which is safe in both premultiplied and
// straight-alpha modes since a plain average never references a differently
// scaled channel.
func pyramidReduce(buf *floatImage, w, h, targetW, targetH int) (*floatImage, int, int) {
	for w > targetW*2 && h > targetH*2 {
		nw, nh := w/2, h/2
		if nw < 1 || nh < 1 {
			break
		}
		next := newFloatImage(nw, nh)
		for y := 0; y < nh; y++ {
			for x := 0; x < nw; x++ {
				sx, sy := x*2, y*2
				for c := 0; c < 4; c++ {
					sum := buf.at(sx, sy, c) + buf.at(sx+1, sy, c) + buf.at(sx, sy+1, c) + buf.at(sx+1, sy+1, c)
					next.set(x, y, c, sum/4)
				}
			}
		}
		buf, w, h = next, nw, nh
	}
	return buf, w, h
}
