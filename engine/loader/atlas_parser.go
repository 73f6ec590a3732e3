package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dzazaleo/spine-assets-optimizer/engine/model"
)

// atlasParser defines the interface for decoding a textual atlas manifest into
// model.AtlasMetadata (spec §4.4). Internal to the loader package.
type atlasParser interface {
	// Parse decodes one atlas manifest.
	//
	// Parameters:
	//   - data: the raw manifest text (ASCII, LF or CRLF newlines)
	//
	// Returns:
	//   - model.AtlasMetadata: the parsed regions, in declaration order
	//   - error: error if the manifest cannot be parsed at all
	Parse(data []byte) (model.AtlasMetadata, error)
}

type atlasParserImpl struct{}

func newAtlasParser() atlasParser {
	return &atlasParserImpl{}
}

// recognizedRegionProperties are the property keys stored for a region;
// everything else (format, filter, repeat, ...) is ignored per spec §4.4.
var recognizedRegionProperties = map[string]bool{
	"rotate": true,
	"xy":     true,
	"size":   true,
	"orig":   true,
	"offset": true,
	"index":  true,
}

func (p *atlasParserImpl) Parse(data []byte) (model.AtlasMetadata, error) {
	lines := splitLines(data)

	var meta model.AtlasMetadata
	i := 0
	// Skip any leading blank lines before the first page block.
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}

	for i < len(lines) {
		pageLine := strings.TrimSpace(lines[i])
		if pageLine == "" {
			i++
			continue
		}
		pageName := sanitizePageName(pageLine)
		i++

		// Page-level property lines (format, filter, repeat, size, ...) precede the
		// first region name; skip any "key: value" line here, they are ignored.
		for i < len(lines) {
			line := strings.TrimSpace(lines[i])
			if line == "" {
				i++
				break
			}
			if _, _, isProp := splitProperty(line); !isProp {
				break // this is a region name, not a page property
			}
			i++
		}

		for i < len(lines) {
			line := strings.TrimSpace(lines[i])
			if line == "" {
				i++
				break
			}
			if _, _, isProp := splitProperty(line); isProp {
				// A property line encountered where a region name was expected means
				// the manifest omitted the blank line separating pages; treat it as
				// belonging to the page and skip it rather than failing the parse.
				i++
				continue
			}

			regionName := line
			i++

			props := make(map[string]string, 6)
			for i < len(lines) {
				propLine := strings.TrimSpace(lines[i])
				if propLine == "" {
					// Leave the blank line unconsumed: it separates page
					// blocks, and the region-list loop below needs to see it
					// to stop collecting regions for this page rather than
					// misreading the next page name as a region.
					break
				}
				key, value, isProp := splitProperty(propLine)
				if !isProp {
					break // next region name
				}
				i++
				if recognizedRegionProperties[key] {
					props[key] = value
				}
			}

			region, err := buildRegion(pageName, regionName, props)
			if err != nil {
				return model.AtlasMetadata{}, fmt.Errorf("atlas: region %q: %w", regionName, err)
			}
			meta.Regions = append(meta.Regions, region)
		}
	}

	return meta, nil
}

func splitLines(data []byte) []string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// splitProperty splits a "key: value" line. Lines without a colon are region
// names, not properties.
func splitProperty(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	return key, value, true
}

// sanitizePageName strips trailing image extensions repeatedly (healing
// "foo.png.png") and appends a single canonical extension: the outermost one
// detected, lowercased, or .png when none was present (spec §4.4).
func sanitizePageName(name string) string {
	ext := ""
	known := []string{".png", ".jpg", ".jpeg", ".webp"}
	for {
		stripped := false
		lower := strings.ToLower(name)
		for _, e := range known {
			if strings.HasSuffix(lower, e) {
				name = name[:len(name)-len(e)]
				if ext == "" {
					ext = e
				}
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	if ext == "" {
		ext = ".png"
	}
	return name + ext
}

// buildRegion assembles a model.AtlasRegion from a region's collected "key:
// value" properties. "size" is the rectangle as physically stored on the page;
// when rotated it is swapped here so the result carries logical (unrotated
// sprite) Width/Height, matching model.AtlasRegion's documented convention.
func buildRegion(pageName, name string, props map[string]string) (model.AtlasRegion, error) {
	region := model.AtlasRegion{PageName: pageName, Name: name}

	if v, ok := props["rotate"]; ok {
		region.Rotated = strings.EqualFold(v, "true")
	}
	if v, ok := props["xy"]; ok {
		x, y, err := parseIntPair(v)
		if err != nil {
			return model.AtlasRegion{}, fmt.Errorf("xy: %w", err)
		}
		region.X, region.Y = x, y
	}
	if v, ok := props["size"]; ok {
		w, h, err := parseIntPair(v)
		if err != nil {
			return model.AtlasRegion{}, fmt.Errorf("size: %w", err)
		}
		if region.Rotated {
			w, h = h, w
		}
		region.Width, region.Height = w, h
	}
	if v, ok := props["orig"]; ok {
		w, h, err := parseIntPair(v)
		if err != nil {
			return model.AtlasRegion{}, fmt.Errorf("orig: %w", err)
		}
		region.OriginalWidth, region.OriginalHeight = w, h
	}
	if v, ok := props["offset"]; ok {
		x, y, err := parseIntPair(v)
		if err != nil {
			return model.AtlasRegion{}, fmt.Errorf("offset: %w", err)
		}
		region.OffsetX, region.OffsetY = x, y
	}
	if v, ok := props["index"]; ok {
		idx, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return model.AtlasRegion{}, fmt.Errorf("index: %w", err)
		}
		region.Index = idx
	}

	return region, nil
}

func parseIntPair(value string) (int, int, error) {
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("expected two comma-separated values, got %q", value)
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
