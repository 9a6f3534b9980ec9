package domain

import (
	"testing"
)

func TestDetectPlatformFromURL(t *testing.T) {
	platforms := GetDefaultPlatforms()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "YouTube watch", url: "https://www.youtube.com/watch?v=abc", want: PlatformYouTube},
		{name: "YouTube short", url: "https://youtu.be/abc", want: PlatformYouTube},
		{name: "Twitter", url: "https://twitter.com/user/status/1", want: PlatformTwitter},
		{name: "X", url: "https://x.com/user/status/1", want: PlatformTwitter},
		{name: "Instagram", url: "https://www.instagram.com/p/abc/", want: PlatformInstagram},
		{name: "Unknown", url: "https://example.com/article", want: ""},
		{name: "Case sensitive", url: "https://YOUTUBE.COM/watch?v=abc", want: ""},
		// Substring matching on the whole URL, not the host
		{name: "Query mentions YouTube", url: "https://example.com/redirect?to=youtube.com/x", want: PlatformYouTube},
		{name: "Host merely ends in x.com", url: "https://netflix.com/title/1", want: PlatformTwitter},
		// YouTube is checked before Twitter
		{name: "First platform wins", url: "https://x.com/share?u=youtube.com", want: PlatformYouTube},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectPlatformFromURL(tt.url, platforms)
			if tt.want == "" {
				if got != nil {
					t.Errorf("DetectPlatformFromURL(%q) = %q, want no match", tt.url, got.ID)
				}
				return
			}
			if got == nil {
				t.Fatalf("DetectPlatformFromURL(%q) = nil, want %q", tt.url, tt.want)
			}
			if got.ID != tt.want {
				t.Errorf("DetectPlatformFromURL(%q) = %q, want %q", tt.url, got.ID, tt.want)
			}
		})
	}
}

func TestDefaultPlatformOrder(t *testing.T) {
	var patterns []string
	for _, p := range GetDefaultPlatforms() {
		patterns = append(patterns, p.URLPatterns...)
	}

	want := []string{"youtube.com", "youtu.be", "twitter.com", "x.com", "instagram.com"}
	if len(patterns) != len(want) {
		t.Fatalf("got %d patterns, want %d: %v", len(patterns), len(want), patterns)
	}
	for i := range want {
		if patterns[i] != want[i] {
			t.Errorf("pattern %d = %q, want %q", i, patterns[i], want[i])
		}
	}
}

func TestPreviewResultClone(t *testing.T) {
	title := "Title"
	original := PreviewResult{Title: &title}

	clone := original.Clone()
	*clone.Title = "Changed"

	if *original.Title != "Title" {
		t.Errorf("Clone shares memory with original: %q", *original.Title)
	}
	if clone.Description != nil || clone.ThumbnailURL != nil || clone.EmbedHTML != nil {
		t.Errorf("Clone invented fields: %+v", clone)
	}
	if !(PreviewResult{}).IsEmpty() {
		t.Error("zero PreviewResult should be empty")
	}
	if original.IsEmpty() {
		t.Error("PreviewResult with a title should not be empty")
	}
}
