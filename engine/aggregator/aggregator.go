// Package aggregator folds per-animation usage records into one merged
// GlobalAssetStat per image, then merges across skeletons, applying the
// strict priority rules of spec §4.3.
package aggregator

import (
	"sort"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/analyzer"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/index"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// Aggregator defines the public-facing interface for merging analysis output
// into a single global report.
type Aggregator interface {
	// MergeSkeleton folds one skeleton's per-animation usage records into
	// per-image stats, resolving each image's effective (canonical or
	// physical) size from snap.
	//
	// Parameters:
	//   - skeletonID: the identifier recorded on each stat's SourceSkeleton
	//   - usages: the FoundAssetUsage records from one Analyzer.Analyze call
	//   - overrides: per-image override percentages (key → percent), may be nil
	//   - snap: the image index snapshot used to resolve effective sizes
	//
	// Returns:
	//   - []model.GlobalAssetStat: one merged stat per distinct image key
	MergeSkeleton(skeletonID string, usages []model.FoundAssetUsage, overrides map[string]float64, snap index.Snapshot) []model.GlobalAssetStat

	// MergeAll merges stats from multiple skeletons using area comparison only
	// (spec §4.3: "using area comparison only, skeleton identity is recorded in
	// sourceSkeleton").
	//
	// Parameters:
	//   - perSkeleton: one stat slice per skeleton, as returned by MergeSkeleton
	//
	// Returns:
	//   - []model.GlobalAssetStat: the cross-skeleton merged stats, sorted by image key
	MergeAll(perSkeleton [][]model.GlobalAssetStat) []model.GlobalAssetStat

	// BuildReport assembles a full AnalysisReport from merged stats, the image
	// index snapshot, and supporting document metadata.
	//
	// Parameters:
	//   - perAnimation: the raw per-animation usage records across all skeletons (for the report's PerAnimation field)
	//   - merged: the cross-skeleton merged stats
	//   - snap: the image index snapshot
	//   - skinNames, eventNames, controlBoneNames: sorted supporting indices
	//   - missingImages: copied into the report as given; the Invoker passes the
	//     message of each AssetMissing issue (one per unresolved attachment
	//     reference per animation, naming the attachment path), not bare paths
	//   - issues: accumulated non-fatal issues from ingestion and analysis
	//
	// Returns:
	//   - model.AnalysisReport: the complete report
	BuildReport(
		perAnimation []model.FoundAssetUsage,
		merged []model.GlobalAssetStat,
		snap index.Snapshot,
		skinNames, eventNames, controlBoneNames []string,
		missingImages []string,
		issues []model.Issue,
	) model.AnalysisReport
}

type aggregatorImpl struct{}

// NewAggregator constructs an Aggregator. Like the Analyzer, it is a pure
// function over its inputs (spec §4.9).
func NewAggregator() Aggregator {
	return &aggregatorImpl{}
}

var _ Aggregator = (*aggregatorImpl)(nil)

func (a *aggregatorImpl) MergeSkeleton(
	skeletonID string,
	usages []model.FoundAssetUsage,
	overrides map[string]float64,
	snap index.Snapshot,
) []model.GlobalAssetStat {
	stats := make(map[string]model.GlobalAssetStat)

	for _, u := range usages {
		if u.LocalOverrideActive {
			continue // excluded from global maxima, still reported with "ignored" flag elsewhere
		}
		asset, present := snap.Assets[u.ImageKey]
		if !present {
			continue
		}

		effW, effH := asset.EffectiveSize()
		overridePct := overrides[u.ImageKey]
		w, h := u.RenderDimensions(effW, effH, overridePct)

		candidate := model.GlobalAssetStat{
			ImageKey:          u.ImageKey,
			CanonicalW:        asset.CanonicalW,
			CanonicalH:        asset.CanonicalH,
			PhysicalW:         asset.PhysicalW,
			PhysicalH:         asset.PhysicalH,
			MaxRenderWidth:    w,
			MaxRenderHeight:   h,
			MaxScaleX:         u.MaxScaleX,
			MaxScaleY:         u.MaxScaleY,
			SourceAnimation:   u.Animation,
			SourceSkeleton:    skeletonID,
			FrameIndex:        u.FrameIndex,
			Skin:              u.Skin,
			OverridePercent:   overridePct,
			IsSetupPoseOnly:   u.Animation == analyzer.SetupPoseName,
			DimensionMismatch: asset.CanonicalMismatch(),
		}

		existing, present := stats[u.ImageKey]
		if !present {
			stats[u.ImageKey] = candidate
			continue
		}
		if shouldReplace(existing, candidate) {
			stats[u.ImageKey] = candidate
		}
	}

	out := make([]model.GlobalAssetStat, 0, len(stats))
	for _, s := range stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImageKey < out[j].ImageKey })
	return out
}

// shouldReplace implements spec §4.3's priority rules 2–4: setup-pose
// exclusion, area comparison, then the "default" skin tie-break.
func shouldReplace(existing, candidate model.GlobalAssetStat) bool {
	// Rule 2: once a non-setup animation has contributed, setup pose never
	// replaces it, regardless of area.
	if candidate.IsSetupPoseOnly && !existing.IsSetupPoseOnly {
		return false
	}
	if !candidate.IsSetupPoseOnly && existing.IsSetupPoseOnly {
		return true
	}

	existingArea := existing.Area()
	candidateArea := candidate.Area()

	// Rule 3: strictly larger area wins.
	if candidateArea != existingArea {
		return candidateArea > existingArea
	}

	// Rule 4: equal area — prefer a non-"default" skin, else keep the earlier record.
	if existing.Skin == "default" && candidate.Skin != "default" {
		return true
	}
	return false
}

func (a *aggregatorImpl) MergeAll(perSkeleton [][]model.GlobalAssetStat) []model.GlobalAssetStat {
	merged := make(map[string]model.GlobalAssetStat)
	for _, stats := range perSkeleton {
		for _, s := range stats {
			existing, present := merged[s.ImageKey]
			if !present || s.Area() > existing.Area() {
				merged[s.ImageKey] = s
			}
		}
	}

	out := make([]model.GlobalAssetStat, 0, len(merged))
	for _, s := range merged {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImageKey < out[j].ImageKey })
	return out
}

func (a *aggregatorImpl) BuildReport(
	perAnimation []model.FoundAssetUsage,
	merged []model.GlobalAssetStat,
	snap index.Snapshot,
	skinNames, eventNames, controlBoneNames []string,
	missingImages []string,
	issues []model.Issue,
) model.AnalysisReport {
	used := make(map[string]bool, len(merged))
	canonicalMissing := false
	for _, s := range merged {
		used[s.ImageKey] = true
		if s.CanonicalW == 0 || s.CanonicalH == 0 {
			canonicalMissing = true
		}
	}

	report := model.AnalysisReport{
		PerAnimation:           perAnimation,
		GlobalStats:            merged,
		UnusedAssets:           snap.UnusedAssets(used),
		MissingImages:          missingImages,
		SkinNames:              sortedCopy(skinNames),
		EventNames:             sortedCopy(eventNames),
		ControlBoneNames:       sortedCopy(controlBoneNames),
		IsCanonicalDataMissing: canonicalMissing,
		Issues:                 issues,
	}
	return report
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

// invariant1Tolerance documents the 1-pixel rounding tolerance referenced by
// spec §8 invariant 1; kept as a named constant so tests can reference the
// same value the implementation is held to.
const invariant1Tolerance = 1

// WithinRoundingTolerance reports whether actual is within invariant1Tolerance
// pixels of at least the expected minimum (spec §8 invariant 1).
func WithinRoundingTolerance(actual, expectedMin int) bool {
	return actual >= expectedMin-invariant1Tolerance
}
