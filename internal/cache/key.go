package cache

import "strings"

// KeyPrefix namespaces preview entries in shared stores
const KeyPrefix = "bookmark-embed:"

// Key derives the cache key for a preview request. The URL is kept as
// submitted apart from surrounding whitespace and the case of its scheme and
// host, so any two URLs that can show different pages get different keys.
// Key also builds key prefixes for invalidation: Key("") is KeyPrefix.
func Key(rawURL string) string {
	return KeyPrefix + keyURL(rawURL)
}

func keyURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)

	schemeEnd := strings.Index(rawURL, "://")
	if schemeEnd <= 0 {
		return rawURL
	}
	scheme, rest := rawURL[:schemeEnd], rawURL[schemeEnd+3:]

	authorityEnd := strings.IndexAny(rest, "/?#")
	if authorityEnd < 0 {
		authorityEnd = len(rest)
	}
	authority, tail := rest[:authorityEnd], rest[authorityEnd:]

	// userinfo is case-sensitive
	userinfo := ""
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		userinfo, authority = authority[:at+1], authority[at+1:]
	}

	return strings.ToLower(scheme) + "://" + userinfo + strings.ToLower(authority) + tail
}
