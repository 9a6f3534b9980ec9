package urlnorm

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are query parameters that never change what a page shows.
var trackingParams = []string{
	// Google Analytics
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_content",
	"utm_term",
	// Platform-specific tracking
	"si",     // Spotify/YouTube share ID
	"fbclid", // Facebook click ID
	"gclid",  // Google click ID
	"ref",
	"source",
	"msclkid", // Microsoft click ID
	"igshid",  // Instagram share ID
}

// Canonical creates a canonical form of a bookmark URL for cache keys and
// duplicate detection. It handles:
// - Repairing share links with a second '?' in the query
// - Lowercasing the domain and removing the www. prefix
// - Removing tracking parameters
//
// The canonical form is never fetched; previews always use the submitted URL.
func Canonical(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("empty URL")
	}

	u, err := url.Parse(fixMalformedQueryString(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	if u.Host == "" {
		return "", fmt.Errorf("invalid URL: no host found")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(u.Host, "www.")
	u.Fragment = ""

	q := u.Query()
	for _, param := range trackingParams {
		q.Del(param)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// fixMalformedQueryString replaces every '?' after the first one in the query
// with '&'. Chat clients sometimes produce "watch?v=ID?si=XYZ" share links.
func fixMalformedQueryString(rawURL string) string {
	fragment := ""
	if idx := strings.Index(rawURL, "#"); idx >= 0 {
		fragment = rawURL[idx:]
		rawURL = rawURL[:idx]
	}

	first := strings.Index(rawURL, "?")
	if first < 0 {
		return rawURL + fragment
	}

	head := rawURL[:first+1]
	query := strings.ReplaceAll(rawURL[first+1:], "?", "&")
	return head + query + fragment
}
