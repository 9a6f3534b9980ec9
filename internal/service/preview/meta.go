package preview

import (
	"strings"

	"bookmark-preview/internal/pkg/entity"
)

// Meta holds the text metadata extracted from a page
type Meta struct {
	Title       *string
	Description *string
}

// ParseMeta extracts title and description from raw HTML using TitleRules and
// DescriptionRules. baseURL is accepted for symmetry with FindThumbnail; text
// fields never need resolving.
func ParseMeta(html, baseURL string) Meta {
	return Meta{
		Title:       extractText(TitleRules, html),
		Description: extractText(DescriptionRules, html),
	}
}

func extractText(rules []Rule, html string) *string {
	_, raw, ok := firstMatch(rules, html)
	if !ok {
		return nil
	}
	text := entity.Decode(strings.TrimSpace(raw))
	if text == "" {
		return nil
	}
	return &text
}
