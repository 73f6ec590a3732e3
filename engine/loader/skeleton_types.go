// skeleton_types.go contains the raw JSON structures for skeleton documents, as
// described by spec §3 and §6 (required keys: bones, slots, skins, animations;
// optional: events, skeleton.images). These map directly to the on-disk schema
// and are internal to the loader package; skeletonParser converts them into
// model.SkeletonDocument.
package loader

import (
	"encoding/json"
	"sort"
)

// rawSkeletonDocument is the root of a skeleton JSON document.
type rawSkeletonDocument struct {
	Skeleton   *rawSkeletonInfo           `json:"skeleton,omitempty"`
	Bones      []rawBone                  `json:"bones"`
	Slots      []rawSlot                  `json:"slots"`
	Skins      rawSkinsField              `json:"skins"`
	Animations map[string]rawAnimation    `json:"animations"`
	Events     map[string]json.RawMessage `json:"events,omitempty"`
}

// rawSkeletonInfo carries the optional canonical image dimensions map (spec §4.1:
// "each skeleton contributes canonical (width, height) entries keyed by the
// lowercase attachment path").
type rawSkeletonInfo struct {
	Images map[string]rawImageSize `json:"images,omitempty"`
}

type rawImageSize struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

type rawBone struct {
	Name   string  `json:"name"`
	Parent string  `json:"parent,omitempty"`
	ScaleX float64 `json:"scaleX,omitempty"`
	ScaleY float64 `json:"scaleY,omitempty"`
}

type rawSlot struct {
	Name       string `json:"name"`
	Bone       string `json:"bone"`
	Attachment string `json:"attachment,omitempty"`
}

type rawAttachmentDef struct {
	Path   string  `json:"path,omitempty"`
	Type   string  `json:"type,omitempty"`
	ScaleX float64 `json:"scaleX,omitempty"`
	ScaleY float64 `json:"scaleY,omitempty"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

// rawNamedSkin is one skin: a name plus its slot→(attachment-name→def) mapping.
type rawNamedSkin struct {
	Name  string
	Slots map[string]map[string]rawAttachmentDef
}

// rawSkinsField accepts both schema generations seen in the wild: skins as an
// array of {name, attachments} objects, or skins as a map of skin name to its
// slot→attachments mapping (converted in sorted skin-name order). UnmarshalJSON
// sniffs which form is present rather than trusting a fixed shape.
type rawSkinsField struct {
	Named []rawNamedSkin
}

func (f *rawSkinsField) UnmarshalJSON(data []byte) error {
	var asArray []struct {
		Name       string                                  `json:"name"`
		Attachment map[string]map[string]rawAttachmentDef `json:"attachments"`
	}
	if err := json.Unmarshal(data, &asArray); err == nil {
		for _, s := range asArray {
			f.Named = append(f.Named, rawNamedSkin{Name: s.Name, Slots: s.Attachment})
		}
		return nil
	}

	var asMap map[string]map[string]map[string]rawAttachmentDef
	if err := json.Unmarshal(data, &asMap); err != nil {
		return err
	}
	names := make([]string, 0, len(asMap))
	for name := range asMap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f.Named = append(f.Named, rawNamedSkin{Name: name, Slots: asMap[name]})
	}
	return nil
}

type rawAttachmentKey struct {
	Time float64 `json:"time"`
	Name string  `json:"name"` // empty string means "hide"
}

// rawAnimation is one named animation's slot and bone timelines.
type rawAnimation struct {
	Slots map[string]rawSlotTimeline `json:"slots,omitempty"`
	Bones map[string]rawBoneTimeline `json:"bones,omitempty"`
}

// rawSlotTimeline captures the "attachment" sub-timeline this analyzer interprets,
// plus whether any other timeline kind (color, twoColor, ...) is present on this
// slot so "implicitly active slots" (spec §4.2) can still be discovered even when
// the only timeline present is one this analyzer does not model.
type rawSlotTimeline struct {
	Attachment []rawAttachmentKey
	Touched    bool
}

func (t *rawSlotTimeline) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Touched = len(raw) > 0
	if attach, ok := raw["attachment"]; ok {
		if err := json.Unmarshal(attach, &t.Attachment); err != nil {
			return err
		}
	}
	return nil
}

type rawScaleKey struct {
	Time  float64 `json:"time"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Curve any     `json:"curve,omitempty"` // string "stepped"/"linear", or a numeric bezier control array (linearized)
}

// rawBoneTimeline captures the "scale" sub-timeline this analyzer interprets,
// plus whether any other timeline kind (translate, rotate, shear) is present.
type rawBoneTimeline struct {
	Scale   []rawScaleKey
	Touched bool
}

func (t *rawBoneTimeline) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Touched = len(raw) > 0
	if scale, ok := raw["scale"]; ok {
		if err := json.Unmarshal(scale, &t.Scale); err != nil {
			return err
		}
	}
	return nil
}
