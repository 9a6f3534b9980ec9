package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://example.com/articles/post"

func TestFindThumbnail(t *testing.T) {
	tests := []struct {
		name string
		html string
		base string
		want *string
	}{
		{
			name: "hero image beats excluded logo",
			html: `<html><body>
				<img src="logo.png" width="1000" height="1000">
				<img src="a.png" width="300" height="300" class="hero">
			</body></html>`,
			base: testBase,
			want: strp("https://example.com/articles/a.png"),
		},
		{
			name: "undeclared size is still selected",
			html: `<body><img src="/img/photo.jpg"></body>`,
			base: testBase,
			want: strp("https://example.com/img/photo.jpg"),
		},
		{
			name: "only low-value images",
			html: `<body><img src="/tiny.png" width="10" height="10"></body>`,
			base: testBase,
			want: nil,
		},
		{
			name: "no body tag means no body scan",
			html: `<div><img src="/photo.jpg"></div>`,
			base: testBase,
			want: nil,
		},
		{
			name: "og:image wins over body images",
			html: `<head><meta property="og:image" content="/og.png"></head>
				<body><img src="/big.png" width="800" height="600" class="hero"></body>`,
			base: testBase,
			want: strp("https://example.com/og.png"),
		},
		{
			name: "declaration order, not document order",
			html: `<meta name="twitter:image" content="https://cdn.example.com/tw.png">
				<meta property="og:image" content="https://cdn.example.com/og.png">`,
			base: testBase,
			want: strp("https://cdn.example.com/og.png"),
		},
		{
			name: "link image_src",
			html: `<link href="//cdn.example.com/src.png" rel="image_src">`,
			base: testBase,
			want: strp("https://cdn.example.com/src.png"),
		},
		{
			name: "meta image is entity-decoded",
			html: `<meta property="og:image" content="https://example.com/i.png?a=1&amp;b=2">`,
			base: testBase,
			want: strp("https://example.com/i.png?a=1&b=2"),
		},
		{
			name: "JSON-LD skips malformed block",
			html: `<script type="application/ld+json">{not json</script>
				<script type="application/ld+json">{"image": {"url": "https://cdn.example.com/ld.jpg"}}</script>
				<body><img src="/body.jpg"></body>`,
			base: testBase,
			want: strp("https://cdn.example.com/ld.jpg"),
		},
		{
			name: "JSON-LD array of items",
			html: `<script type="application/ld+json">
				[{"@type": "Person", "name": "x"}, {"thumbnailUrl": ["//cdn.example.com/t.jpg"]}]
			</script>`,
			base: testBase,
			want: strp("https://cdn.example.com/t.jpg"),
		},
		{
			name: "JSON-LD empty image falls through to thumbnail",
			html: `<script type="application/ld+json">{"image": "", "thumbnail": "/thumb.jpg"}</script>`,
			base: testBase,
			want: strp("https://example.com/thumb.jpg"),
		},
		{
			name: "normalization failure is terminal",
			html: `<meta property="og:image" content="/og.png">
				<body><img src="https://example.com/big.png"></body>`,
			base: "not a base url",
			want: nil,
		},
		{
			name: "absolute candidate needs no base",
			html: `<meta property="og:image" content="https://example.com/og.png">`,
			base: "",
			want: strp("https://example.com/og.png"),
		},
		{
			name: "nothing at all",
			html: `<html><head><title>x</title></head></html>`,
			base: testBase,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindThumbnail(tt.html, tt.base))
		})
	}
}

func TestImagePriority(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want int
	}{
		{name: "large", tag: `<img src="a" width="300" height="300">`, want: 3},
		{name: "medium", tag: `<img src="a" width="200" height="150">`, want: 2},
		{name: "small", tag: `<img src="a" width="100" height="60">`, want: 1},
		{name: "tiny", tag: `<img src="a" width="50" height="50">`, want: 0},
		{name: "zero width", tag: `<img src="a" width="0" height="500">`, want: 0},
		{name: "boundary 50000 is not large", tag: `<img src="a" width="500" height="100">`, want: 2},
		{name: "width only", tag: `<img src="a" width="300">`, want: 1},
		{name: "non-numeric", tag: `<img src="a" width="100%" height="300">`, want: 1},
		{name: "no dimensions", tag: `<img src="a">`, want: 1},
		{name: "hero class", tag: `<img src="a" width="300" height="300" class="hero">`, want: 5},
		{name: "banner id", tag: `<img src="a" id="top-banner">`, want: 3},
		{name: "class is case-insensitive", tag: `<img src="a" class="Featured-Image">`, want: 3},
		{name: "tiny hero", tag: `<img src="a" width="10" height="10" class="cover">`, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, imagePriority(tt.tag))
		})
	}
}

func TestScanBodyImages(t *testing.T) {
	html := `<head><img src="/head.png"></head>
		<body class="page">
			<img src="/first.png">
			<img src="/assets/site-icon.png">
			<img src="/AVATAR/me.png">
			<img src="/second.png">
			<img src="/big.png?w=1&amp;h=2" width="400" height="300">
		</div></body>
		<img src="/late.png" width="10" height="10">
		</body>`

	got := ScanBodyImages(html)
	require.Len(t, got, 4)

	assert.Equal(t, ImageCandidate{Src: "/big.png?w=1&h=2", Priority: 3}, got[0])
	// ties keep document order
	assert.Equal(t, "/first.png", got[1].Src)
	assert.Equal(t, "/second.png", got[2].Src)
	// window ends at the last </body>
	assert.Equal(t, ImageCandidate{Src: "/late.png", Priority: 0}, got[3])
}

func TestScanBodyImagesWithoutClosingBody(t *testing.T) {
	assert.Empty(t, ScanBodyImages(`<body><img src="/a.png">`))
}
