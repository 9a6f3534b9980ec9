package preview

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"bookmark-preview/internal/pkg/entity"
	"bookmark-preview/internal/pkg/urlnorm"
)

var (
	jsonLDPattern    = regexp.MustCompile(`(?is)<script\s+type=["']application/ld\+json["'][^>]*>(.*?)</script>`)
	bodyOpenPattern  = regexp.MustCompile(`(?i)<body[^>]*>`)
	bodyClosePattern = regexp.MustCompile(`(?i)</body>`)
	imgPattern       = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["'][^>]*>`)
	widthPattern     = regexp.MustCompile(`(?i)width=["'](\d+)["']`)
	heightPattern    = regexp.MustCompile(`(?i)height=["'](\d+)["']`)
	heroClassPattern = regexp.MustCompile(`(?i)class=["'][^"']*(?:hero|banner|featured|main|cover)[^"']*["']`)
	heroIDPattern    = regexp.MustCompile(`(?i)id=["'][^"']*(?:hero|banner|featured|main|cover)[^"']*["']`)
)

// decorativeMarkers exclude an <img> whose lowercased src contains any of them.
var decorativeMarkers = []string{"icon", "logo", "avatar", "favicon", "sprite"}

// jsonLDImageFields is the order in which a JSON-LD item is searched for an image.
var jsonLDImageFields = []string{"image", "thumbnailUrl", "thumbnail"}

// ImageCandidate is an <img> found in the page body during Tier C selection.
type ImageCandidate struct {
	Src      string
	Priority int
}

// FindThumbnail picks a representative image for the page. Tiers are tried in
// order (declared meta, JSON-LD, heuristic body scan) and the first tier that
// yields a raw candidate is the only one whose candidate is normalized: if
// that candidate cannot be resolved against baseURL, the result is nil.
func FindThumbnail(html, baseURL string) *string {
	raw, ok := declaredImage(html)
	if !ok {
		raw, ok = jsonLDImage(html)
	}
	if !ok {
		raw, ok = bodyImage(html)
	}
	if !ok {
		return nil
	}

	resolved, ok := urlnorm.Resolve(raw, baseURL)
	if !ok {
		return nil
	}
	return &resolved
}

// declaredImage is Tier A: og/twitter meta tags and <link rel="image_src">.
func declaredImage(html string) (string, bool) {
	_, raw, ok := firstMatch(ImageRules, html)
	return raw, ok
}

// jsonLDImage is Tier B: the first usable image in a JSON-LD block. Blocks that
// fail to parse are skipped.
func jsonLDImage(html string) (string, bool) {
	for _, m := range jsonLDPattern.FindAllStringSubmatch(html, -1) {
		var data interface{}
		if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
			continue
		}

		items, isList := data.([]interface{})
		if !isList {
			items = []interface{}{data}
		}

		for _, item := range items {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if src, ok := imageFromJSONLD(obj); ok {
				return src, true
			}
		}
	}
	return "", false
}

func imageFromJSONLD(obj map[string]interface{}) (string, bool) {
	var image interface{}
	for _, field := range jsonLDImageFields {
		if truthy(obj[field]) {
			image = obj[field]
			break
		}
	}

	if list, ok := image.([]interface{}); ok {
		if len(list) == 0 {
			return "", false
		}
		image = list[0]
	}
	if nested, ok := image.(map[string]interface{}); ok && truthy(nested["url"]) {
		image = nested["url"]
	}

	src, ok := image.(string)
	if !ok || src == "" {
		return "", false
	}
	return src, true
}

// truthy reports whether a decoded JSON value counts as present.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	default:
		return true
	}
}

// bodyImage is Tier C: the highest priority <img> between the first <body> tag
// and the last </body>. A winner with priority 0 yields nothing.
func bodyImage(html string) (string, bool) {
	candidates := ScanBodyImages(html)
	if len(candidates) == 0 || candidates[0].Priority <= 0 {
		return "", false
	}
	return candidates[0].Src, true
}

// ScanBodyImages returns the body's <img> candidates sorted by descending
// priority, stable with respect to document order. Decorative images are
// not included.
func ScanBodyImages(html string) []ImageCandidate {
	body, ok := bodyWindow(html)
	if !ok {
		return nil
	}

	var candidates []ImageCandidate
	for _, m := range imgPattern.FindAllStringSubmatch(body, -1) {
		src := entity.DecodeMinimal(m[1])
		if isDecorative(src) {
			continue
		}
		candidates = append(candidates, ImageCandidate{
			Src:      src,
			Priority: imagePriority(m[0]),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})
	return candidates
}

func bodyWindow(html string) (string, bool) {
	open := bodyOpenPattern.FindStringIndex(html)
	if open == nil {
		return "", false
	}
	closes := bodyClosePattern.FindAllStringIndex(html[open[1]:], -1)
	if len(closes) == 0 {
		return "", false
	}
	last := closes[len(closes)-1]
	return html[open[1] : open[1]+last[0]], true
}

func isDecorative(src string) bool {
	lower := strings.ToLower(src)
	for _, marker := range decorativeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// imagePriority scores an <img> tag. Declared dimensions pick the base score
// from the pixel area (> 50000 → 3, > 20000 → 2, > 5000 → 1, otherwise 0);
// undeclared or unparsable dimensions score 1. A hero-like class or id adds 2.
func imagePriority(tag string) int {
	priority := 1

	w, wok := dimension(widthPattern, tag)
	h, hok := dimension(heightPattern, tag)
	if wok && hok {
		switch area := w * h; {
		case area > 50000:
			priority = 3
		case area > 20000:
			priority = 2
		case area > 5000:
			priority = 1
		default:
			priority = 0
		}
	}

	if heroClassPattern.MatchString(tag) || heroIDPattern.MatchString(tag) {
		priority += 2
	}
	return priority
}

func dimension(pattern *regexp.Regexp, tag string) (int64, bool) {
	m := pattern.FindStringSubmatch(tag)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 32)
	if err != nil {
		return 0, false
	}
	return n, true
}
