package resampler

// alphaToleranceForPremultipliedHint is the per-channel slack allowed before a
// premultiplied-hinted image is judged to actually carry straight alpha (spec
// §4.6 stage 2: "to tolerate compression noise").
const alphaToleranceForPremultipliedHint = 2.0

// detectStraightAlpha scans every 4th pixel of buf for evidence that a
// premultiplied-hinted source is not actually premultiplied: any channel
// exceeding alpha by more than the tolerance proves straight alpha, since a
// true PMA pixel can never have RGB > A (spec §4.6 stage 2).
func detectStraightAlpha(buf *floatImage) bool {
	total := buf.w * buf.h
	for i := 0; i < total; i += 4 {
		x, y := i%buf.w, i/buf.w
		a := buf.at(x, y, 3)
		for c := 0; c < 3; c++ {
			if buf.at(x, y, c)-a > alphaToleranceForPremultipliedHint {
				return true
			}
		}
	}
	return false
}
