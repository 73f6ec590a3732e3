package loader

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// skeletonParser defines the interface for decoding a skeleton document's JSON
// text into a model.SkeletonDocument. Internal to the loader package.
type skeletonParser interface {
	// Parse decodes one skeleton document.
	//
	// Parameters:
	//   - id: the document identifier (e.g. derived from its source file name)
	//   - data: the raw JSON bytes
	//
	// Returns:
	//   - *model.SkeletonDocument: the parsed, validated document
	//   - error: error if the document is malformed or its bone graph has a cycle
	Parse(id string, data []byte) (*model.SkeletonDocument, error)
}

type skeletonParserImpl struct{}

func newSkeletonParser() skeletonParser {
	return &skeletonParserImpl{}
}

func (p *skeletonParserImpl) Parse(id string, data []byte) (*model.SkeletonDocument, error) {
	var raw rawSkeletonDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("skeleton %q: invalid JSON: %w", id, err)
	}
	if len(raw.Bones) == 0 {
		return nil, fmt.Errorf("skeleton %q: missing required key %q", id, "bones")
	}
	if raw.Slots == nil {
		return nil, fmt.Errorf("skeleton %q: missing required key %q", id, "slots")
	}

	doc := &model.SkeletonDocument{ID: id}

	for _, b := range raw.Bones {
		doc.Bones = append(doc.Bones, model.Bone{
			Name:       b.Name,
			ParentName: b.Parent,
			ScaleX:     b.ScaleX,
			ScaleY:     b.ScaleY,
		})
	}
	if err := checkBoneForest(doc.Bones); err != nil {
		return nil, fmt.Errorf("skeleton %q: %w", id, err)
	}

	for _, s := range raw.Slots {
		doc.Slots = append(doc.Slots, model.Slot{
			Name:              s.Name,
			Bone:              s.Bone,
			DefaultAttachment: s.Attachment,
		})
	}

	for _, skin := range raw.Skins.Named {
		doc.Skins = append(doc.Skins, convertSkin(skin))
	}
	for _, skin := range doc.Skins {
		for _, attachments := range skin.Slots {
			for _, def := range attachments {
				if def.HasCanonicalDimensions() {
					applyCanonicalSize(doc, def.EffectivePath(), def.Width, def.Height)
				}
			}
		}
	}

	for name, evt := range raw.Events {
		_ = evt
		doc.Events = append(doc.Events, name)
	}
	sort.Strings(doc.Events)

	animNames := make([]string, 0, len(raw.Animations))
	for name := range raw.Animations {
		animNames = append(animNames, name)
	}
	sort.Strings(animNames)
	for _, name := range animNames {
		doc.Animations = append(doc.Animations, convertAnimation(name, raw.Animations[name]))
	}

	if raw.Skeleton != nil {
		for path, size := range raw.Skeleton.Images {
			applyCanonicalSize(doc, path, size.Width, size.Height)
		}
	}

	return doc, nil
}

// checkBoneForest verifies the bone graph is a forest: every ParentName (when
// set) names a known bone, and no cycle exists (spec §3 invariant).
func checkBoneForest(bones []model.Bone) error {
	index := make(map[string]int, len(bones))
	for i, b := range bones {
		index[b.Name] = i
	}
	for _, b := range bones {
		if b.ParentName != "" {
			if _, ok := index[b.ParentName]; !ok {
				return fmt.Errorf("bone %q references unknown parent %q", b.Name, b.ParentName)
			}
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make([]int, len(bones))
	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("cycle detected at bone %q", bones[i].Name)
		}
		state[i] = visiting
		if bones[i].ParentName != "" {
			if pi, ok := index[bones[i].ParentName]; ok {
				if err := visit(pi); err != nil {
					return err
				}
			}
		}
		state[i] = done
		return nil
	}
	for i := range bones {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

func convertSkin(raw rawNamedSkin) model.Skin {
	skin := model.Skin{Name: raw.Name, Slots: make(map[string]map[string]model.AttachmentDef, len(raw.Slots))}
	for slotName, attachments := range raw.Slots {
		converted := make(map[string]model.AttachmentDef, len(attachments))
		for attName, def := range attachments {
			converted[attName] = model.AttachmentDef{
				Name:   attName,
				Path:   def.Path,
				ScaleX: def.ScaleX,
				ScaleY: def.ScaleY,
				Width:  def.Width,
				Height: def.Height,
				Kind:   attachmentKindOf(def.Type),
			}
		}
		skin.Slots[slotName] = converted
	}
	return skin
}

// attachmentKindOf defaults an unset/unknown type to "region", matching how
// skeleton formats omit the type field for the overwhelmingly common case.
func attachmentKindOf(raw string) model.AttachmentKind {
	switch model.AttachmentKind(raw) {
	case model.AttachmentMesh, model.AttachmentClipping, model.AttachmentPath, model.AttachmentBoundingBox:
		return model.AttachmentKind(raw)
	default:
		return model.AttachmentRegion
	}
}

func convertAnimation(name string, raw rawAnimation) model.Animation {
	anim := model.Animation{
		Name:        name,
		SlotTouched: make(map[string]bool, len(raw.Slots)),
		BoneTouched: make(map[string]bool, len(raw.Bones)),
	}

	slotNames := sortedKeys(raw.Slots)
	for _, slotName := range slotNames {
		tl := raw.Slots[slotName]
		anim.SlotTouched[slotName] = tl.Touched
		if len(tl.Attachment) == 0 {
			continue
		}
		keys := make([]model.AttachmentKey, 0, len(tl.Attachment))
		for _, k := range tl.Attachment {
			keys = append(keys, model.AttachmentKey{Time: k.Time, AttachmentName: k.Name})
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Time < keys[j].Time })
		anim.SlotAttachments = append(anim.SlotAttachments, model.SlotAttachmentTimeline{Slot: slotName, Keys: keys})
	}

	boneNames := sortedKeysBone(raw.Bones)
	for _, boneName := range boneNames {
		tl := raw.Bones[boneName]
		anim.BoneTouched[boneName] = tl.Touched
		if len(tl.Scale) == 0 {
			continue
		}
		keys := make([]model.Keyframe, 0, len(tl.Scale))
		for _, k := range tl.Scale {
			keys = append(keys, model.Keyframe{
				Time:   k.Time,
				ScaleX: defaultScale(k.X),
				ScaleY: defaultScale(k.Y),
				Curve:  curveOf(k.Curve),
			})
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Time < keys[j].Time })
		anim.BoneScales = append(anim.BoneScales, model.BoneTimeline{Bone: boneName, Keys: keys})
	}

	return anim
}

func defaultScale(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// curveOf resolves the JSON "curve" field to stepped or linear. Any value other
// than the literal string "stepped" (including bezier control-point arrays) is
// linearized — a documented simplification, not a bug (spec §9).
func curveOf(raw any) model.CurveKind {
	if s, ok := raw.(string); ok && strings.EqualFold(s, "stepped") {
		return model.CurveStepped
	}
	return model.CurveLinear
}

func sortedKeys(m map[string]rawSlotTimeline) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysBone(m map[string]rawBoneTimeline) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// applyCanonicalSize records a canonical width/height declared either by an
// attachment's own width/height fields or by a skeleton's "skeleton.images"
// map, keyed by attachment path stripped of extension and lowercased (spec
// §4.1). Callers apply attachment-sourced sizes first so a later explicit
// "skeleton.images" entry for the same path wins. The actual adoption onto an
// ImageAsset happens in the index package; here we stash it on the document
// for the Loader to apply once the image index exists.
func applyCanonicalSize(doc *model.SkeletonDocument, path string, w, h int) {
	if doc.CanonicalSizes == nil {
		doc.CanonicalSizes = make(map[string][2]int)
	}
	doc.CanonicalSizes[normalizeCanonicalKey(path)] = [2]int{w, h}
}

func normalizeCanonicalKey(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimSpace(path)
	path = strings.ToLower(path)
	if idx := strings.LastIndex(path, "."); idx > strings.LastIndex(path, "/") {
		path = path[:idx]
	}
	return path
}
