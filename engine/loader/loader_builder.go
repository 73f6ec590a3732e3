package loader

import "github.com/Dzazaleo/spine-assets-optimizer/engine/model"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// withSkeletonParser overrides the skeleton document parser, primarily for tests.
//
// Parameters:
//   - p: the skeletonParser implementation to use
//
// Returns:
//   - LoaderBuilderOption: a function that applies the parser option to a loader
func withSkeletonParser(p skeletonParser) LoaderBuilderOption {
	return func(l *loader) {
		l.skeletonParser = p
	}
}

// withAtlasParser overrides the atlas manifest parser, primarily for tests.
//
// Parameters:
//   - p: the atlasParser implementation to use
//
// Returns:
//   - LoaderBuilderOption: a function that applies the parser option to a loader
func withAtlasParser(p atlasParser) LoaderBuilderOption {
	return func(l *loader) {
		l.atlasParser = p
	}
}

// WithSkeleton pre-populates the skeleton cache with an already-parsed document.
//
// Parameters:
//   - doc: the skeleton document to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the skeleton option to a loader
func WithSkeleton(doc *model.SkeletonDocument) LoaderBuilderOption {
	return func(l *loader) {
		l.skeletonCache[doc.ID] = doc
	}
}
