// Package loader sniffs and decodes the three file kinds an ingestion batch can
// contain — skeleton documents, atlas manifests, loose images — and merges the
// result into an image index (spec §2, §4.1, §4.4, §6).
package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/index"
	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	skeletonParser skeletonParser
	atlasParser    atlasParser

	// skeletonCache holds the most recently ingested document per id, so a
	// repeat Ingest of the same path replaces rather than duplicates it.
	skeletonCache map[string]*model.SkeletonDocument
}

// Loader defines the public-facing interface for turning a batch of raw file
// assets into parsed skeleton documents and a populated image index. It
// abstracts content sniffing behind the assumption that any of the three
// supported kinds may appear in any order within a batch.
type Loader interface {
	// Ingest sniffs and decodes every asset in the batch, merging images and
	// atlas page names into idx and caching parsed skeleton documents.
	// Malformed individual assets are reported as Issues and skipped; Ingest
	// itself only fails on conditions that invalidate the whole batch.
	//
	// Parameters:
	//   - assets: the raw file assets to ingest
	//   - idx: the image index to merge decoded images and atlas page names into
	//
	// Returns:
	//   - []*model.SkeletonDocument: successfully parsed skeleton documents from this batch
	//   - []model.Issue: non-fatal problems encountered (spec §7)
	//   - error: reserved for batch-level failure; always nil today
	Ingest(assets []model.FileAsset, idx index.ImageIndex) ([]*model.SkeletonDocument, []model.Issue, error)

	// Skeletons returns every skeleton document ingested so far, keyed by id.
	Skeletons() map[string]*model.SkeletonDocument

	// Clear forgets all previously ingested skeleton documents.
	Clear()
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided options
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		skeletonParser: newSkeletonParser(),
		atlasParser:    newAtlasParser(),
		skeletonCache:  make(map[string]*model.SkeletonDocument),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Ingest(assets []model.FileAsset, idx index.ImageIndex) ([]*model.SkeletonDocument, []model.Issue, error) {
	var issues []model.Issue
	var skeletonAssets []model.FileAsset

	// Images and atlas manifests populate the index in this first pass;
	// skeleton documents are parsed in a second pass below so their
	// canonical-size declarations land on images regardless of batch order.
	for _, fa := range assets {
		switch sniff(fa.Data) {
		case assetImage:
			w, h, err := decodeImageSize(fa.Data)
			if err != nil {
				issues = append(issues, model.Issue{
					Kind:    model.IssueMalformedInput,
					Message: err.Error(),
					Context: fa.Path,
				})
				continue
			}
			idx.AddImage(model.ImageAsset{
				Key:          index.NormalizeKey(fa.Path),
				OriginalPath: fa.Path,
				Data:         fa.Data,
				PhysicalW:    w,
				PhysicalH:    h,
				Kind:         model.ImageSourceLoose,
			})

		case assetAtlas:
			meta, err := l.atlasParser.Parse(fa.Data)
			if err != nil {
				issues = append(issues, model.Issue{
					Kind:    model.IssueMalformedInput,
					Message: err.Error(),
					Context: fa.Path,
				})
				continue
			}
			l.ingestAtlas(fa, meta, idx, &issues)

		case assetSkeleton:
			skeletonAssets = append(skeletonAssets, fa)

		default:
			issues = append(issues, model.Issue{
				Kind:    model.IssueMalformedInput,
				Message: "unrecognized asset content",
				Context: fa.Path,
			})
		}
	}

	var docs []*model.SkeletonDocument
	l.mu.Lock()
	for _, fa := range skeletonAssets {
		id := skeletonID(fa.Path)
		doc, err := l.skeletonParser.Parse(id, fa.Data)
		if err != nil {
			issues = append(issues, model.Issue{
				Kind:    model.IssueMalformedInput,
				Message: err.Error(),
				Context: fa.Path,
			})
			continue
		}
		for path, size := range doc.CanonicalSizes {
			idx.AddCanonicalSize(path, size[0], size[1])
		}
		l.skeletonCache[id] = doc
		docs = append(docs, doc)
	}
	l.mu.Unlock()

	return docs, issues, nil
}

// ingestAtlas locates each atlas page's backing image in idx and unpacks every
// region's logical metadata into an atlas-extracted ImageAsset placeholder (the
// actual pixel unpack is the Atlas Unpacker's job, spec §4.5 — here only the
// dimensions needed for render-resolution analysis are recorded). A missing
// page image is a non-fatal warning; the rest of the atlas still loads
// (spec §4.10: "missing atlas page image → skip that atlas, log warning").
func (l *loader) ingestAtlas(fa model.FileAsset, meta model.AtlasMetadata, idx index.ImageIndex, issues *[]model.Issue) {
	base := filepath.Dir(fa.Path)
	if base == "." {
		base = ""
	}

	for _, pageName := range meta.PageNames() {
		idx.AddAtlasPageName(pageName)

		pageAsset, _, ok := idx.Find(joinKey(base, pageName))
		if !ok {
			pageAsset, _, ok = idx.Find(pageName)
		}
		if !ok {
			*issues = append(*issues, model.Issue{
				Kind:    model.IssueMalformedInput,
				Message: fmt.Sprintf("atlas page image %q not found", pageName),
				Context: fa.Path,
			})
			continue
		}

		for _, region := range meta.Regions {
			if region.PageName != pageName {
				continue
			}
			idx.AddImage(model.ImageAsset{
				Key:          extractedKey(base, region.Name),
				OriginalPath: pageAsset.OriginalPath,
				PhysicalW:    region.Width,
				PhysicalH:    region.Height,
				Kind:         model.ImageSourceAtlasExtracted,
			})
		}
	}
}

func joinKey(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func extractedKey(dir, regionName string) string {
	name := regionName
	if !strings.Contains(name, ".") {
		name += ".png"
	}
	return index.NormalizeKey(joinKey(dir, name))
}

// skeletonID derives a document identifier from its source file name.
func skeletonID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (l *loader) Skeletons() map[string]*model.SkeletonDocument {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]*model.SkeletonDocument, len(l.skeletonCache))
	for k, v := range l.skeletonCache {
		out[k] = v
	}
	return out
}

func (l *loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.skeletonCache = make(map[string]*model.SkeletonDocument)
}
