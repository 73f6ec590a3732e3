package analyzer

import "github.com/Dzazaleo/spine-assets-optimizer/engine/model"

// scaleSampler computes the cumulative scale of any bone at any sample time
// within one animation (or the setup pose, when anim is nil), memoizing each
// bone's result per sampled time (spec §4.2: "depth-first with caching").
type scaleSampler struct {
	forest *boneForest

	// timelines maps bone index to its sorted scale keyframes, nil when absent.
	timelines [][]model.Keyframe
	// scaleAffected marks bones that themselves, or via an ancestor, carry a
	// non-empty scale timeline in this animation.
	scaleAffected []bool

	// cache[t] holds the memoized (scaleX, scaleY) per bone index for time t.
	cache map[float64][]scaleMemo
}

type scaleMemo struct {
	x, y  float64
	ready bool
}

func newScaleSampler(forest *boneForest, anim *model.Animation) *scaleSampler {
	s := &scaleSampler{
		forest:        forest,
		timelines:     make([][]model.Keyframe, len(forest.nodes)),
		scaleAffected: make([]bool, len(forest.nodes)),
		cache:         make(map[float64][]scaleMemo),
	}

	if anim != nil {
		for _, bt := range anim.BoneScales {
			bone, ok := forest.byName[bt.Bone]
			if !ok || len(bt.Keys) == 0 {
				continue
			}
			s.timelines[bone.index] = bt.Keys
		}
	}

	hasOwnTimeline := make([]bool, len(forest.nodes))
	for i := range forest.nodes {
		hasOwnTimeline[i] = s.timelines[i] != nil
	}
	for i := range forest.nodes {
		affected := false
		for n := i; n >= 0; n = forest.nodes[n].parent {
			if hasOwnTimeline[n] {
				affected = true
				break
			}
		}
		s.scaleAffected[i] = affected
	}

	return s
}

func (s *scaleSampler) affected(boneIndex int) bool {
	return s.scaleAffected[boneIndex]
}

// cumulativeScale returns the product of the parent chain's cumulative scale,
// the bone's setup scale, and the animation's instantaneous scale at time t
// (spec §4.2). Results are memoized per (bone, t) for this sampler's lifetime.
func (s *scaleSampler) cumulativeScale(boneIndex int, t float64) (float64, float64) {
	perBone, ok := s.cache[t]
	if !ok {
		perBone = make([]scaleMemo, len(s.forest.nodes))
		s.cache[t] = perBone
	}

	return s.resolve(boneIndex, t, perBone)
}

func (s *scaleSampler) resolve(boneIndex int, t float64, perBone []scaleMemo) (float64, float64) {
	if m := perBone[boneIndex]; m.ready {
		return m.x, m.y
	}

	node := s.forest.nodes[boneIndex]
	parentX, parentY := 1.0, 1.0
	if node.parent >= 0 {
		parentX, parentY = s.resolve(node.parent, t, perBone)
	}

	animX, animY := s.instantaneousScale(boneIndex, t)
	cumX := parentX * node.scaleX * animX
	cumY := parentY * node.scaleY * animY

	perBone[boneIndex] = scaleMemo{x: cumX, y: cumY, ready: true}
	return cumX, cumY
}

// instantaneousScale evaluates the animated scale of a single bone's own
// timeline at time t, defaulting to (1, 1) when the bone has no timeline.
// Interpolation is linear between keys; a "stepped" key holds its value until
// the next key (spec §4.2).
func (s *scaleSampler) instantaneousScale(boneIndex int, t float64) (float64, float64) {
	keys := s.timelines[boneIndex]
	if len(keys) == 0 {
		return 1, 1
	}
	if t <= keys[0].Time {
		return defaultOne(keys[0].ScaleX), defaultOne(keys[0].ScaleY)
	}
	last := keys[len(keys)-1]
	if t >= last.Time {
		return defaultOne(last.ScaleX), defaultOne(last.ScaleY)
	}

	for i := 0; i < len(keys)-1; i++ {
		a, b := keys[i], keys[i+1]
		if t < a.Time || t >= b.Time {
			continue
		}
		if a.Curve == model.CurveStepped {
			return defaultOne(a.ScaleX), defaultOne(a.ScaleY)
		}
		span := b.Time - a.Time
		if span <= 0 {
			return defaultOne(a.ScaleX), defaultOne(a.ScaleY)
		}
		frac := (t - a.Time) / span
		sx := defaultOne(a.ScaleX) + (defaultOne(b.ScaleX)-defaultOne(a.ScaleX))*frac
		sy := defaultOne(a.ScaleY) + (defaultOne(b.ScaleY)-defaultOne(a.ScaleY))*frac
		return sx, sy
	}

	return 1, 1
}

func defaultOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
