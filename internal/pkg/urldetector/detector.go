package urldetector

import (
	"net/url"
	"regexp"
	"strings"
)

// URLInfo contains information about a detected URL
type URLInfo struct {
	URL string
	// Platform is the oEmbed platform ID, or "" for generic pages
	Platform string
}

// Classifier maps a URL to its platform ID, "" when none matches
type Classifier func(url string) string

var (
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
	angleLinkPattern    = regexp.MustCompile(`<(https?://[^>\s]+)>`)
	urlPattern          = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"'\x60]+`)
)

// invisible characters chat clients and editors leave inside links
var invisibleReplacer = strings.NewReplacer(
	"\u200B", "",
	"\u200C", "",
	"\u200D", "",
	"\uFEFF", "",
)

// Detector extracts http(s) links from free text such as notes, chat
// exports or markdown documents
type Detector struct {
	classify Classifier
}

// New creates a detector. classify may be nil.
func New(classify Classifier) *Detector {
	return &Detector{classify: classify}
}

// CleanMarkdownLinks rewrites [text](url) and <url> to the bare URL and drops
// zero-width characters
func CleanMarkdownLinks(content string) string {
	cleaned := markdownLinkPattern.ReplaceAllString(content, " $2 ")
	cleaned = angleLinkPattern.ReplaceAllString(cleaned, " $1 ")
	return invisibleReplacer.Replace(cleaned)
}

// DetectURLs finds every distinct http(s) URL in content, in order of
// first appearance
func (d *Detector) DetectURLs(content string) []URLInfo {
	var urls []URLInfo
	seen := make(map[string]bool)

	for _, match := range urlPattern.FindAllString(CleanMarkdownLinks(content), -1) {
		link := trimTrailing(match)
		if !isValid(link) || seen[link] {
			continue
		}
		seen[link] = true

		info := URLInfo{URL: link}
		if d.classify != nil {
			info.Platform = d.classify(link)
		}
		urls = append(urls, info)
	}

	return urls
}

// trimTrailing drops sentence punctuation and an unbalanced closing
// parenthesis, as in "(see https://example.com/a)."
func trimTrailing(link string) string {
	for {
		trimmed := strings.TrimRight(link, ".,!?;:")
		if strings.HasSuffix(trimmed, ")") && strings.Count(trimmed, "(") < strings.Count(trimmed, ")") {
			trimmed = strings.TrimSuffix(trimmed, ")")
		}
		if trimmed == link {
			return link
		}
		link = trimmed
	}
}

func isValid(link string) bool {
	u, err := url.Parse(link)
	return err == nil && u.Host != ""
}

// IsRootURL reports whether a URL points at a bare domain, like
// https://www.example.com or https://example.com/
func IsRootURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Trim(u.Path, "/") == "" && u.RawQuery == "" && u.Fragment == ""
}
