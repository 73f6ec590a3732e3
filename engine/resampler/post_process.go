package resampler

// postProcessAlpha enforces the channel relationship implied by the detected
// alpha mode after resampling has potentially pushed values out of range
// (spec §4.6 stage 5): in premultiplied mode no channel may exceed alpha, so
// RGB is clamped down to it; in straight-alpha mode RGB and alpha vary
// independently and are left untouched.
func postProcessAlpha(buf *floatImage, straightAlpha bool) {
	if straightAlpha {
		return
	}
	total := buf.w * buf.h
	for i := 0; i < total; i++ {
		x, y := i%buf.w, i/buf.w
		a := buf.at(x, y, 3)
		for c := 0; c < 3; c++ {
			if v := buf.at(x, y, c); v > a {
				buf.set(x, y, c, a)
			}
		}
	}
}

// ditherState is a minimal xorshift generator, seeded deterministically per
// image so repeated runs over the same input are reproducible.
type ditherState struct {
	s uint32
}

func (d *ditherState) next() float32 {
	d.s ^= d.s << 13
	d.s ^= d.s >> 17
	d.s ^= d.s << 5
	return float32(d.s%10000) / 10000
}

// dither applies triangular-distribution noise (the sum of two independent
// uniforms in [0,1), minus 1, giving a triangular distribution over (-1,1))
// to every channel before 8-bit quantization, breaking up banding in smooth
// gradients (spec §4.6 stage 6).
func dither(buf *floatImage) {
	st := &ditherState{s: 0x9e3779b9}
	total := buf.w * buf.h
	for i := 0; i < total; i++ {
		x, y := i%buf.w, i/buf.w
		for c := 0; c < 4; c++ {
			noise := st.next() + st.next() - 1
			buf.set(x, y, c, clamp255(buf.at(x, y, c)+noise))
		}
	}
}
