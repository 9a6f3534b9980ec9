package entity

import (
	"regexp"
	"strconv"
	"unicode/utf8"
)

// namedEntities is the fixed substitution table applied by Decode.
// Keys include the leading '&' and trailing ';'.
var namedEntities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
	"&#x27;": "'",
	"&#x2F;": "/",
	"&#x60;": "`",
	"&#x3D;": "=",
}

// minimalEntities is the subset used when decoding <img src> values.
var minimalEntities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
}

// entityPattern matches every token Decode knows how to replace.
// Matching is done in one scan, so replacement output is never re-examined.
var entityPattern = regexp.MustCompile(`&(?:amp|lt|gt|quot|#x[0-9a-fA-F]+|#[0-9]+);`)

var minimalPattern = regexp.MustCompile(`&(?:amp|lt|gt|quot|#39);`)

// Decode replaces HTML entities in text in a single left-to-right pass.
//
// The fixed table wins over the generic numeric forms, so "&#x2F;" and "&#x2f;"
// both become "/". Anything unrecognised or out of the Unicode range is left as-is.
// "&amp;lt;" decodes to "&lt;", not "<".
func Decode(text string) string {
	if text == "" {
		return text
	}
	return entityPattern.ReplaceAllStringFunc(text, decodeToken)
}

// DecodeMinimal decodes only &amp; &lt; &gt; &quot; and &#39;, in a single pass.
func DecodeMinimal(text string) string {
	if text == "" {
		return text
	}
	return minimalPattern.ReplaceAllStringFunc(text, func(token string) string {
		return minimalEntities[token]
	})
}

func decodeToken(token string) string {
	if replacement, ok := namedEntities[token]; ok {
		return replacement
	}

	body := token[2 : len(token)-1] // strip "&#" and ";"
	base := 10
	if len(body) > 0 && (body[0] == 'x' || body[0] == 'X') {
		body = body[1:]
		base = 16
	}

	code, err := strconv.ParseUint(body, base, 32)
	if err != nil {
		return token
	}
	r := rune(code)
	if !utf8.ValidRune(r) {
		return token
	}
	return string(r)
}
