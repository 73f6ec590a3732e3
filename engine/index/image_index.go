// Package index maintains the normalized mapping from lookup key to decoded
// image asset, plus the atlas-page-name bookkeeping used to keep implicit
// backing textures out of the unused-asset set (spec §4.1, §4.9).
package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// State is the image index's lifecycle state (spec §4.9).
type State int

const (
	StateEmpty State = iota
	StateIngesting
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateIngesting:
		return "ingesting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// ImageIndex defines the public-facing interface for registering image assets
// and resolving attachment paths to them.
//
// Mutation (Add*, Clear) only ever happens during ingestion; Analyze/Plan
// consumers take a Snapshot and read it without locking (spec §5: "the image
// index is mutated only during ingestion; analyzer/aggregator consume a
// snapshot").
type ImageIndex interface {
	// AddImage registers one decoded image asset under its normalized key. A
	// second registration of the same key overwrites the first (last ingest wins).
	AddImage(asset model.ImageAsset)

	// AddCanonicalSize records a skeleton-declared (width, height) for an
	// attachment path; it is adopted onto any image already or later registered
	// under the matching normalized key.
	AddCanonicalSize(path string, w, h int)

	// AddAtlasPageName records a page name as an implicit backing texture so it
	// is never classified as unused even without an attachment referencing it.
	AddAtlasPageName(name string)

	// Find resolves a requested lookup key to a registered asset using the
	// precedence rules of spec §4.1: exact match, extension-appended match,
	// then shortest-suffix match. ambiguous is true when the suffix match had
	// more than one equally-short candidate (spec §9 open question).
	Find(key string) (asset model.ImageAsset, ambiguous bool, ok bool)

	// Snapshot returns an immutable copy of the current state for analysis.
	Snapshot() Snapshot

	// State reports the current lifecycle state.
	State() State

	// Clear resets the index to Empty.
	Clear()
}

// Snapshot is an immutable view of the index's assets and atlas page names,
// consumed by the analyzer/aggregator without any further locking.
type Snapshot struct {
	Assets        map[string]model.ImageAsset
	AtlasPageKeys map[string]bool // normalized page-name keys, with and without directory prefix
}

// Find resolves a lookup key against this snapshot using the same precedence
// rules as ImageIndex.Find. Exposed on Snapshot so the analyzer can resolve
// keys without touching the live, potentially-mutating index.
func (s Snapshot) Find(key string) (asset model.ImageAsset, ambiguous bool, ok bool) {
	return findImage(s.Assets, key)
}

// knownExtensions are appended, in order, when an exact match is not found
// (spec §4.1 step 2).
var knownExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

var _ ImageIndex = (*imageIndexImpl)(nil)

type imageIndexImpl struct {
	mu sync.RWMutex

	assets         map[string]model.ImageAsset
	canonicalSizes map[string][2]int
	atlasPages     map[string]bool

	state State
}

// NewImageIndex constructs an empty ImageIndex.
func NewImageIndex() ImageIndex {
	return &imageIndexImpl{
		assets:         make(map[string]model.ImageAsset),
		canonicalSizes: make(map[string][2]int),
		atlasPages:     make(map[string]bool),
		state:          StateEmpty,
	}
}

// NormalizeKey replaces backslashes with forward slashes, trims, and lowercases.
func NormalizeKey(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimSpace(path)
	return strings.ToLower(path)
}

func (idx *imageIndexImpl) AddImage(asset model.ImageAsset) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	asset.Key = NormalizeKey(asset.Key)
	if sz, ok := idx.canonicalSizes[canonicalKeyOf(asset.Key)]; ok {
		asset.CanonicalW, asset.CanonicalH = sz[0], sz[1]
	}
	idx.assets[asset.Key] = asset
	idx.state = StateIngesting
}

func (idx *imageIndexImpl) AddCanonicalSize(path string, w, h int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := canonicalKeyOf(NormalizeKey(path))
	idx.canonicalSizes[key] = [2]int{w, h}
	for k, a := range idx.assets {
		if canonicalKeyOf(k) == key {
			a.CanonicalW, a.CanonicalH = w, h
			idx.assets[k] = a
		}
	}
	idx.state = StateIngesting
}

func (idx *imageIndexImpl) AddAtlasPageName(name string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	key := NormalizeKey(name)
	idx.atlasPages[key] = true
	if slash := strings.LastIndex(key, "/"); slash >= 0 {
		idx.atlasPages[key[slash+1:]] = true
	}
	idx.state = StateIngesting
}

func (idx *imageIndexImpl) Find(key string) (model.ImageAsset, bool, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return findImage(idx.assets, key)
}

func (idx *imageIndexImpl) Snapshot() Snapshot {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	assets := make(map[string]model.ImageAsset, len(idx.assets))
	for k, v := range idx.assets {
		assets[k] = v
	}
	pages := make(map[string]bool, len(idx.atlasPages))
	for k, v := range idx.atlasPages {
		pages[k] = v
	}
	if idx.state == StateIngesting {
		idx.state = StateReady
	}
	return Snapshot{Assets: assets, AtlasPageKeys: pages}
}

func (idx *imageIndexImpl) State() State {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.state
}

func (idx *imageIndexImpl) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.assets = make(map[string]model.ImageAsset)
	idx.canonicalSizes = make(map[string][2]int)
	idx.atlasPages = make(map[string]bool)
	idx.state = StateEmpty
}

// canonicalKeyOf strips the extension from a normalized key, matching the
// convention skeleton.images declarations use (spec §4.1).
func canonicalKeyOf(normalizedKey string) string {
	if idx := strings.LastIndex(normalizedKey, "."); idx > strings.LastIndex(normalizedKey, "/") {
		return normalizedKey[:idx]
	}
	return normalizedKey
}

// findImage implements the spec §4.1 lookup precedence against any key→asset map.
func findImage(assets map[string]model.ImageAsset, requested string) (model.ImageAsset, bool, bool) {
	key := NormalizeKey(requested)

	if a, ok := assets[key]; ok {
		return a, false, true
	}

	for _, ext := range knownExtensions {
		if a, ok := assets[key+ext]; ok {
			return a, false, true
		}
	}

	var candidates []string
	suffixes := make([]string, 0, len(knownExtensions)+1)
	suffixes = append(suffixes, "/"+key)
	for _, ext := range knownExtensions {
		suffixes = append(suffixes, "/"+key+ext)
	}
	for k := range assets {
		for _, suf := range suffixes {
			if strings.HasSuffix(k, suf) {
				candidates = append(candidates, k)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return model.ImageAsset{}, false, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) < len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	ambiguous := len(candidates) > 1 && len(candidates[0]) == len(candidates[1])
	return assets[candidates[0]], ambiguous, true
}

// IsAtlasPageKey reports whether key (normalized, with or without directory
// prefix) names a registered atlas page (spec §4.3 unused-asset exclusion).
func (s Snapshot) IsAtlasPageKey(key string) bool {
	key = NormalizeKey(key)
	if s.AtlasPageKeys[key] {
		return true
	}
	if slash := strings.LastIndex(key, "/"); slash >= 0 {
		return s.AtlasPageKeys[key[slash+1:]]
	}
	return false
}

// UnusedAssets returns, sorted, every asset key in the snapshot not present in
// usedKeys and not an atlas page backing (spec §4.3).
func (s Snapshot) UnusedAssets(usedKeys map[string]bool) []string {
	var unused []string
	for key := range s.Assets {
		if usedKeys[key] {
			continue
		}
		if s.IsAtlasPageKey(key) {
			continue
		}
		unused = append(unused, key)
	}
	sort.Strings(unused)
	return unused
}

// Describe is a small diagnostic helper used by the CLI/logging layer.
func (s Snapshot) Describe() string {
	return fmt.Sprintf("%d assets, %d atlas pages", len(s.Assets), len(s.AtlasPageKeys))
}
