package preview

import (
	"regexp"
)

// Rule is one entry of a "first match wins" chain. Pattern must have exactly
// one capture group holding the extracted value.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Extract returns the rule's capture from html, if the pattern matches anywhere.
func (r Rule) Extract(html string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(html)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// firstMatch evaluates rules in order and returns the first capture found.
// Priority is the position in rules, not the position in the document.
func firstMatch(rules []Rule, html string) (string, string, bool) {
	for _, rule := range rules {
		if value, ok := rule.Extract(html); ok {
			return rule.Name, value, true
		}
	}
	return "", "", false
}

// quotedValue captures the first "/'-delimited attribute value.
const quotedValue = `["']([^"']+)["']`

// attrFirst builds a pattern for <tag attr="key" valueAttr="...">.
// Tag and attribute names are case-insensitive; key is matched exactly.
func attrFirst(tag, attr, key, valueAttr string) *regexp.Regexp {
	return regexp.MustCompile(
		`(?i:<` + tag + `\s+` + attr + `=)["']` + regexp.QuoteMeta(key) + `["']\s+` +
			`(?i:` + valueAttr + `=)` + quotedValue)
}

// valueFirst builds a pattern for <tag valueAttr="..." attr="key">.
func valueFirst(tag, attr, key, valueAttr string) *regexp.Regexp {
	return regexp.MustCompile(
		`(?i:<` + tag + `\s+` + valueAttr + `=)` + quotedValue + `\s+` +
			`(?i:` + attr + `=)["']` + regexp.QuoteMeta(key) + `["']`)
}

func metaRules(attr, key string, contentFirst bool) []Rule {
	attrRule := Rule{
		Name:    key + " (" + attr + ", content)",
		Pattern: attrFirst("meta", attr, key, "content"),
	}
	contentRule := Rule{
		Name:    key + " (content, " + attr + ")",
		Pattern: valueFirst("meta", attr, key, "content"),
	}
	if contentFirst {
		return []Rule{contentRule, attrRule}
	}
	return []Rule{attrRule, contentRule}
}

func concatRules(groups ...[]Rule) []Rule {
	var out []Rule
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// TitleRules is the title resolution order.
var TitleRules = concatRules(
	[]Rule{{Name: "title", Pattern: regexp.MustCompile(`(?i:<title)[^>]*>([^<]+)(?i:</title>)`)}},
	metaRules("property", "og:title", true),
	metaRules("name", "twitter:title", true),
)

// DescriptionRules is the description resolution order.
var DescriptionRules = concatRules(
	metaRules("name", "description", false),
	metaRules("property", "og:description", false),
	metaRules("name", "twitter:description", false),
)

// ImageRules is the Tier A thumbnail resolution order.
var ImageRules = concatRules(
	metaRules("property", "og:image", false),
	metaRules("property", "og:image:secure_url", false),
	metaRules("name", "twitter:image", false),
	metaRules("name", "twitter:image:src", false),
	[]Rule{
		{Name: "image_src (rel, href)", Pattern: attrFirst("link", "rel", "image_src", "href")},
		{Name: "image_src (href, rel)", Pattern: valueFirst("link", "rel", "image_src", "href")},
	},
)
