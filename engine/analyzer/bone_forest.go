package analyzer

import "github.com/Dzazaleo/spine-assets-optimizer/engine/model"

// boneNode is one bone within the forest, indexed for O(1) parent/child walks.
type boneNode struct {
	name       string
	parent     int // -1 for roots
	scaleX     float64
	scaleY     float64
	index      int
}

// boneForest is the array-of-bones-with-parent-index representation recommended
// by spec §9 ("represent it as an array of bones with parent index lookups, and
// a separate name→index table").
type boneForest struct {
	nodes  []boneNode
	byName map[string]*boneNode
}

func newBoneForest(bones []model.Bone) *boneForest {
	f := &boneForest{
		nodes:  make([]boneNode, len(bones)),
		byName: make(map[string]*boneNode, len(bones)),
	}
	nameToIndex := make(map[string]int, len(bones))
	for i, b := range bones {
		nameToIndex[b.Name] = i
	}
	for i, b := range bones {
		sx, sy := b.EffectiveScale()
		parent := -1
		if b.ParentName != "" {
			if pi, ok := nameToIndex[b.ParentName]; ok {
				parent = pi
			}
		}
		f.nodes[i] = boneNode{name: b.Name, parent: parent, scaleX: sx, scaleY: sy, index: i}
	}
	for i := range f.nodes {
		f.byName[f.nodes[i].name] = &f.nodes[i]
	}
	return f
}

// pathOf returns the dot-joined ancestor chain for bone i, root first
// (model.FoundAssetUsage.BonePath).
func (f *boneForest) pathOf(i int) string {
	var names []string
	for i >= 0 {
		names = append([]string{f.nodes[i].name}, names...)
		i = f.nodes[i].parent
	}
	path := ""
	for idx, n := range names {
		if idx > 0 {
			path += "."
		}
		path += n
	}
	return path
}
