package preview

import (
	"net/url"
	"strings"

	"bookmark-preview/internal/domain"
)

// OEmbedRegistry classifies URLs into oEmbed platforms and builds endpoint URLs
type OEmbedRegistry struct {
	platforms []domain.Platform
}

// NewOEmbedRegistry creates a registry over the built-in platforms
func NewOEmbedRegistry() *OEmbedRegistry {
	return NewOEmbedRegistryFrom(domain.GetDefaultPlatforms())
}

// NewOEmbedRegistryFrom creates a registry over platforms, which are matched in order
func NewOEmbedRegistryFrom(platforms []domain.Platform) *OEmbedRegistry {
	return &OEmbedRegistry{platforms: platforms}
}

// Match finds the oEmbed platform for the given URL
// Returns nil if no platform matches
func (r *OEmbedRegistry) Match(resourceURL string) *domain.Platform {
	return domain.DetectPlatformFromURL(resourceURL, r.platforms)
}

// Classify returns the platform ID for resourceURL, or "" for generic pages
func (r *OEmbedRegistry) Classify(resourceURL string) string {
	if p := r.Match(resourceURL); p != nil {
		return p.ID
	}
	return ""
}

// EndpointURL builds the oEmbed API URL for resourceURL on platform p.
// The resource URL is query-escaped into the template's {url} placeholder.
func (r *OEmbedRegistry) EndpointURL(p *domain.Platform, resourceURL string) string {
	return buildOEmbedURL(p.EndpointTemplate, resourceURL)
}

func buildOEmbedURL(template, resourceURL string) string {
	return strings.ReplaceAll(template, "{url}", url.QueryEscape(resourceURL))
}

// GetProviderCount returns the total number of registered platforms
func (r *OEmbedRegistry) GetProviderCount() int {
	return len(r.platforms)
}

// GetProvider returns a platform by ID
func (r *OEmbedRegistry) GetProvider(id string) *domain.Platform {
	for i := range r.platforms {
		if r.platforms[i].ID == id {
			return &r.platforms[i]
		}
	}
	return nil
}

// Platforms returns a copy of the registered platforms in match order
func (r *OEmbedRegistry) Platforms() []domain.Platform {
	platforms := make([]domain.Platform, len(r.platforms))
	copy(platforms, r.platforms)
	return platforms
}
