// Package analyzer walks a skeleton document's bone forest and animation
// timelines to compute, per animation and per referenced attachment, the
// maximum render resolution every image is ever drawn at (spec §4.2).
package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/index"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// sampleRate is the fixed sampling frequency used to step through an
// animation's duration (spec §4.2: "samples time at a fixed 30 Hz").
const sampleRate = 30.0

// tieEpsilon is the tolerance below which two scale magnitudes are considered
// equal for tie-break purposes (spec §4.2: "ties (|Δ| < 1e-4)").
const tieEpsilon = 1e-4

// SetupPoseName is the synthetic animation name used for the setup-pose
// pseudo-animation (spec §4.2, §8 scenario S3).
const SetupPoseName = "Setup Pose"

// Analyzer defines the public-facing interface for computing per-animation
// usage records from a skeleton document against an image index snapshot.
type Analyzer interface {
	// Analyze computes the full set of FoundAssetUsage records for doc: one
	// pseudo-animation for the setup pose plus one per declared animation.
	//
	// Parameters:
	//   - doc: the skeleton document to analyze
	//   - snap: the image index snapshot used to resolve attachment paths
	//
	// Returns:
	//   - []model.FoundAssetUsage: usage records, animation-major, in document declaration order
	//   - []model.Issue: non-fatal issues (missing images, missing canonical data)
	Analyze(doc *model.SkeletonDocument, snap index.Snapshot) ([]model.FoundAssetUsage, []model.Issue)
}

type analyzerImpl struct{}

// NewAnalyzer constructs an Analyzer. The analyzer is a pure function over its
// inputs and holds no state (spec §4.9: "the analyzer + aggregator is pure").
func NewAnalyzer() Analyzer {
	return &analyzerImpl{}
}

var _ Analyzer = (*analyzerImpl)(nil)

func (a *analyzerImpl) Analyze(doc *model.SkeletonDocument, snap index.Snapshot) ([]model.FoundAssetUsage, []model.Issue) {
	forest := newBoneForest(doc.Bones)
	var usages []model.FoundAssetUsage
	var issues []model.Issue

	usages = append(usages, a.analyzeAnimation(doc, forest, nil, snap, &issues)...)
	for i := range doc.Animations {
		usages = append(usages, a.analyzeAnimation(doc, forest, &doc.Animations[i], snap, &issues)...)
	}

	return usages, issues
}

// usageKey is the composite key per spec §4.2's "per-usage maximum resolution":
// one (slot, image) pair within one animation.
type usageKey struct {
	slot     string
	imageKey string
}

func (a *analyzerImpl) analyzeAnimation(
	doc *model.SkeletonDocument,
	forest *boneForest,
	anim *model.Animation,
	snap index.Snapshot,
	issues *[]model.Issue,
) []model.FoundAssetUsage {
	animName := SetupPoseName
	if anim != nil {
		animName = anim.Name
	}

	sampler := newScaleSampler(forest, anim)
	times := sampleTimes(anim)

	best := make(map[usageKey]model.FoundAssetUsage)

	for _, slot := range doc.Slots {
		names := activeAttachmentNames(doc, slot, anim)
		if len(names) == 0 {
			continue
		}
		bone := forest.byName[slot.Bone]
		if bone == nil {
			continue
		}

		for _, skin := range doc.Skins {
			slotDefs, ok := skin.Slots[slot.Name]
			if !ok {
				continue
			}
			for _, name := range names {
				def, ok := slotDefs[name]
				if !ok || !def.Kind.Textured() {
					continue
				}

				imgAsset, ambiguous, found := snap.Find(def.EffectivePath())
				if !found {
					*issues = append(*issues, model.Issue{
						Kind:    model.IssueAssetMissing,
						Message: fmt.Sprintf("attachment %q in slot %q has no matching image", def.EffectivePath(), slot.Name),
						Context: animName,
					})
					continue
				}
				if !def.HasCanonicalDimensions() && imgAsset.CanonicalW == 0 {
					*issues = append(*issues, model.Issue{
						Kind:    model.IssueCanonicalDataMissing,
						Message: fmt.Sprintf("attachment %q has no declared width/height", def.EffectivePath()),
						Context: animName,
					})
				}

				sx, sy := def.EffectiveScale()
				key := usageKey{slot: slot.Name, imageKey: imgAsset.Key}

				for _, t := range times {
					cumX, cumY := sampler.cumulativeScale(bone.index, t)
					usageScaleX := math.Abs(cumX * sx)
					usageScaleY := math.Abs(cumY * sy)
					magnitude := math.Max(usageScaleX, usageScaleY)
					frame := int(math.Round(t * sampleRate))

					cur, exists := best[key]
					curMagnitude := math.Max(cur.MaxScaleX, cur.MaxScaleY)

					better := !exists || magnitude > curMagnitude+tieEpsilon
					tie := exists && math.Abs(magnitude-curMagnitude) <= tieEpsilon
					preferOnTie := tie && cur.Skin != "default" && skin.Name == "default"

					if !better && !preferOnTie {
						continue
					}

					best[key] = model.FoundAssetUsage{
						Animation:      animName,
						BonePath:       forest.pathOf(bone.index),
						Slot:           slot.Name,
						ImageKey:       imgAsset.Key,
						MaxScaleX:      usageScaleX,
						MaxScaleY:      usageScaleY,
						FrameIndex:     frame,
						Skin:           skin.Name,
						ScaleAffected:  sampler.affected(bone.index),
						AmbiguousMatch: ambiguous,
					}
				}
			}
		}
	}

	usages := make([]model.FoundAssetUsage, 0, len(best))
	for k, u := range best {
		if u.Skin != "default" {
			if defSlots, ok := attachmentsInDefault(doc, k.slot); ok {
				for _, def := range defSlots {
					if imgAsset, _, found := snap.Find(def.EffectivePath()); found && imgAsset.Key == u.ImageKey {
						u.ShowSkinLabel = true
						break
					}
				}
			}
		}
		usages = append(usages, u)
	}
	sort.Slice(usages, func(i, j int) bool {
		if usages[i].Slot != usages[j].Slot {
			return usages[i].Slot < usages[j].Slot
		}
		return usages[i].ImageKey < usages[j].ImageKey
	})
	return usages
}

func attachmentsInDefault(doc *model.SkeletonDocument, slotName string) (map[string]model.AttachmentDef, bool) {
	def := doc.DefaultSkin()
	if def == nil {
		return nil, false
	}
	m, ok := def.Slots[slotName]
	return m, ok
}

// activeAttachmentNames gathers the distinct attachment names active for slot
// within anim, per spec §4.2's three enumeration sources. A nil anim means the
// setup-pose pseudo-animation (source 3).
func activeAttachmentNames(doc *model.SkeletonDocument, slot model.Slot, anim *model.Animation) []string {
	if anim == nil {
		if slot.DefaultAttachment == "" {
			return nil
		}
		return []string{slot.DefaultAttachment}
	}

	for _, st := range anim.SlotAttachments {
		if st.Slot != slot.Name {
			continue
		}
		seen := make(map[string]bool)
		var names []string
		for _, k := range st.Keys {
			if k.AttachmentName == "" {
				continue // "hide" key, contributes nothing
			}
			if !seen[k.AttachmentName] {
				seen[k.AttachmentName] = true
				names = append(names, k.AttachmentName)
			}
		}
		return names
	}

	// Source 2: implicitly active slots — no attachment timeline, but the slot
	// or its bone is touched by some other (uninterpreted) timeline kind.
	if anim.SlotTouched[slot.Name] || anim.BoneTouched[slot.Bone] {
		if slot.DefaultAttachment == "" {
			return nil
		}
		return []string{slot.DefaultAttachment}
	}

	return nil
}

// sampleTimes returns the sorted, de-duplicated set of sample times for one
// animation: the 30 Hz grid spanning its duration plus every exact scale
// keyframe time (spec §4.2). A nil animation (setup pose) samples only t=0.
func sampleTimes(anim *model.Animation) []float64 {
	if anim == nil {
		return []float64{0}
	}

	duration := 0.0
	exact := make(map[float64]bool)
	for _, bt := range anim.BoneScales {
		for _, k := range bt.Keys {
			exact[k.Time] = true
			if k.Time > duration {
				duration = k.Time
			}
		}
	}
	for _, st := range anim.SlotAttachments {
		for _, k := range st.Keys {
			if k.Time > duration {
				duration = k.Time
			}
		}
	}

	seen := make(map[float64]bool)
	var times []float64
	step := 1.0 / sampleRate
	for t := 0.0; t <= duration+1e-9; t += step {
		rounded := math.Round(t*1e6) / 1e6
		if !seen[rounded] {
			seen[rounded] = true
			times = append(times, rounded)
		}
	}
	for t := range exact {
		if !seen[t] {
			seen[t] = true
			times = append(times, t)
		}
	}
	sort.Float64s(times)
	return times
}
