package urlnorm

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"bookmark-preview/internal/pkg/entity"
)

// Resolve turns a candidate URL scraped from a page into an absolute URL,
// using baseURL (the page URL) for anything that is not already absolute.
//
// Only a literal lowercase "http" prefix marks a candidate as absolute; such
// candidates are returned untouched apart from decoding and trimming.
// The second return value is false when the base or candidate cannot be parsed.
func Resolve(candidate, baseURL string) (string, bool) {
	normalized := strings.TrimSpace(entity.Decode(candidate))
	if normalized == "" {
		return "", false
	}

	if strings.HasPrefix(normalized, "http") {
		return normalized, true
	}

	resolved, err := resolveAgainst(normalized, baseURL)
	if err != nil {
		slog.Debug("Failed to resolve candidate URL",
			"candidate", normalized,
			"base_url", baseURL,
			"error", err)
		return "", false
	}
	return resolved, true
}

func resolveAgainst(candidate, baseURL string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base URL is not absolute: %q", baseURL)
	}

	switch {
	case strings.HasPrefix(candidate, "//"):
		// Protocol-relative
		return base.Scheme + ":" + candidate, nil
	case strings.HasPrefix(candidate, "/"):
		// Origin-relative
		return base.Scheme + "://" + base.Host + candidate, nil
	}

	ref, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("invalid candidate URL: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
