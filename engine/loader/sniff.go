package loader

import (
	"bytes"
	"encoding/json"
)

// assetKind is the sniffed content category of one ingested FileAsset.
type assetKind int

const (
	assetUnknown assetKind = iota
	assetSkeleton
	assetAtlas
	assetImage
)

var (
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
)

// sniff identifies a FileAsset's content kind by signature rather than trusting
// its path extension (spec: "The Loader sniffs content ... rather than trusting
// the extension alone").
func sniff(data []byte) assetKind {
	if isImage(data) {
		return assetImage
	}
	if isSkeletonJSON(data) {
		return assetSkeleton
	}
	if len(bytes.TrimSpace(data)) > 0 {
		return assetAtlas
	}
	return assetUnknown
}

func isImage(data []byte) bool {
	if bytes.HasPrefix(data, pngMagic) {
		return true
	}
	if bytes.HasPrefix(data, jpegMagic) {
		return true
	}
	if len(data) >= 12 && bytes.HasPrefix(data, riffMagic) && bytes.Equal(data[8:12], webpMagic) {
		return true
	}
	return false
}

// isSkeletonJSON reports whether data parses as JSON with a "bones" top-level
// key, the one required key unique to skeleton documents (spec §6).
func isSkeletonJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var probe struct {
		Bones json.RawMessage `json:"bones"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return false
	}
	return len(probe.Bones) > 0
}
