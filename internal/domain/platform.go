package domain

import "strings"

// Platform represents a site that exposes an oEmbed endpoint
type Platform struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	URLPatterns []string `json:"url_patterns"`

	// EndpointTemplate is the oEmbed endpoint; "{url}" is replaced with the
	// query-escaped resource URL
	EndpointTemplate string `json:"endpoint_template"`
}

// Platform constants - single source of truth
const (
	PlatformYouTube   = "youtube"
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
)

// GetDefaultPlatforms returns the oEmbed platforms in classification order.
// The order matters: the first platform with a matching pattern wins.
func GetDefaultPlatforms() []Platform {
	return []Platform{
		{
			ID:               PlatformYouTube,
			Name:             "YouTube",
			URLPatterns:      []string{"youtube.com", "youtu.be"},
			EndpointTemplate: "https://www.youtube.com/oembed?url={url}&format=json",
		},
		{
			ID:               PlatformTwitter,
			Name:             "Twitter",
			URLPatterns:      []string{"twitter.com", "x.com"},
			EndpointTemplate: "https://publish.twitter.com/oembed?url={url}",
		},
		{
			ID:               PlatformInstagram,
			Name:             "Instagram",
			URLPatterns:      []string{"instagram.com"},
			EndpointTemplate: "https://api.instagram.com/oembed?url={url}",
		},
	}
}

// DetectPlatformFromURL returns the first platform whose pattern occurs anywhere
// in url, or nil. Matching is a case-sensitive substring test on the whole URL,
// so "https://example.com/?to=youtube.com" classifies as YouTube.
func DetectPlatformFromURL(url string, platforms []Platform) *Platform {
	for i := range platforms {
		for _, pattern := range platforms[i].URLPatterns {
			if strings.Contains(url, pattern) {
				return &platforms[i]
			}
		}
	}
	return nil
}
