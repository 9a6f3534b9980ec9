package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "plain text", input: "nothing to see", want: "nothing to see"},
		{name: "ampersand", input: "Tom &amp; Jerry", want: "Tom & Jerry"},
		{name: "angle brackets", input: "&lt;b&gt;", want: "<b>"},
		{name: "quotes", input: "&quot;hi&quot; &#39;there&#39;", want: `"hi" 'there'`},
		{name: "hex apostrophe", input: "it&#x27;s", want: "it's"},
		{name: "hex slash", input: "a&#x2F;b", want: "a/b"},
		{name: "backtick", input: "&#x60;code&#x60;", want: "`code`"},
		{name: "equals", input: "a&#x3D;b", want: "a=b"},
		{name: "decimal", input: "&#65;&#66;", want: "AB"},
		{name: "hex lowercase", input: "&#xe9;", want: "é"},
		{name: "hex uppercase digits", input: "&#x1F600;", want: "😀"},
		{name: "single pass does not re-decode", input: "&amp;lt;", want: "&lt;"},
		{name: "single pass numeric", input: "&amp;#65;", want: "&#65;"},
		{name: "unknown named entity", input: "&nbsp;&copy;", want: "&nbsp;&copy;"},
		{name: "missing semicolon", input: "&amp fish", want: "&amp fish"},
		{name: "invalid code point", input: "&#1114112;", want: "&#1114112;"},
		{name: "surrogate", input: "&#xD800;", want: "&#xD800;"},
		{name: "overflow", input: "&#99999999999;", want: "&#99999999999;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.input))
		})
	}
}

func TestDecodeMinimal(t *testing.T) {
	assert.Equal(t, "/img.png?a=1&b=2", DecodeMinimal("/img.png?a=1&amp;b=2"))
	assert.Equal(t, `<"'>`, DecodeMinimal("&lt;&quot;&#39;&gt;"))
	// numeric and extended forms are outside the minimal set
	assert.Equal(t, "&#x2F;&#65;", DecodeMinimal("&#x2F;&#65;"))
	assert.Equal(t, "&amp;", DecodeMinimal("&amp;amp;"))
}
