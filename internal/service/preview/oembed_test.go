package preview

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"bookmark-preview/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestLogger creates a logger for testing
func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors during tests
	}))
}

func TestBuildOEmbedURL(t *testing.T) {
	registry := NewOEmbedRegistry()

	tests := []struct {
		name        string
		resourceURL string
		wantURL     string
	}{
		{
			name:        "YouTube URL with si parameter",
			resourceURL: "https://youtube.com/watch?v=D1avYj7q42A&si=5c2KrgyqSfo_0jSE",
			wantURL:     "https://www.youtube.com/oembed?url=https%3A%2F%2Fyoutube.com%2Fwatch%3Fv%3DD1avYj7q42A%26si%3D5c2KrgyqSfo_0jSE&format=json",
		},
		{
			name:        "YouTube short link",
			resourceURL: "https://youtu.be/BnkqvBn4OiE",
			wantURL:     "https://www.youtube.com/oembed?url=https%3A%2F%2Fyoutu.be%2FBnkqvBn4OiE&format=json",
		},
		{
			name:        "X status",
			resourceURL: "https://x.com/user/status/1",
			wantURL:     "https://publish.twitter.com/oembed?url=https%3A%2F%2Fx.com%2Fuser%2Fstatus%2F1",
		},
		{
			name:        "Instagram post",
			resourceURL: "https://www.instagram.com/p/abc/",
			wantURL:     "https://api.instagram.com/oembed?url=https%3A%2F%2Fwww.instagram.com%2Fp%2Fabc%2F",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := registry.Match(tt.resourceURL)
			require.NotNil(t, platform)
			assert.Equal(t, tt.wantURL, registry.EndpointURL(platform, tt.resourceURL))
		})
	}
}

func TestOEmbedRegistry(t *testing.T) {
	registry := NewOEmbedRegistry()

	assert.Equal(t, 3, registry.GetProviderCount())
	assert.Equal(t, "YouTube", registry.GetProvider(domain.PlatformYouTube).Name)
	assert.Nil(t, registry.GetProvider("vimeo"))

	assert.Equal(t, domain.PlatformTwitter, registry.Classify("https://twitter.com/a/status/1"))
	assert.Equal(t, "", registry.Classify("https://example.com/"))
}

func TestOEmbedFetch(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    domain.PreviewResult
		wantErr bool
	}{
		{
			name:   "full response",
			status: http.StatusOK,
			body: `{"type":"video","version":"1.0","title":"Video","description":"About",
				"thumbnail_url":"https://i.ytimg.com/vi/x/hq.jpg","thumbnail":"https://other/t.jpg",
				"html":"<iframe src=\"https://www.youtube.com/embed/x\"></iframe>","width":"100%"}`,
			want: domain.PreviewResult{
				Title:        strp("Video"),
				Description:  strp("About"),
				ThumbnailURL: strp("https://i.ytimg.com/vi/x/hq.jpg"),
				EmbedHTML:    strp(`<iframe src="https://www.youtube.com/embed/x"></iframe>`),
			},
		},
		{
			name:   "thumbnail alias and missing fields",
			status: http.StatusOK,
			body:   `{"title":"","thumbnail":"https://cdn/t.jpg","version":1.0}`,
			want:   domain.PreviewResult{ThumbnailURL: strp("https://cdn/t.jpg")},
		},
		{
			name:   "created counts as success",
			status: http.StatusCreated,
			body:   `{"html":"<blockquote>tweet</blockquote>"}`,
			want:   domain.PreviewResult{EmbedHTML: strp("<blockquote>tweet</blockquote>")},
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    `{"error":"no"}`,
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			status:  http.StatusOK,
			body:    `<html>not json</html>`,
			wantErr: true,
		},
		{
			name:    "JSON array",
			status:  http.StatusOK,
			body:    `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "JSON null",
			status:  http.StatusOK,
			body:    `null`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resolver := NewOEmbedResolver(server.Client(), Options{}, createTestLogger())
			got, err := resolver.Fetch(context.Background(), server.URL+"/oembed?url=x")

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestOEmbedFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	resolver := NewOEmbedResolver(server.Client(), Options{}, createTestLogger())
	_, err := resolver.Fetch(context.Background(), server.URL)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
}

func TestOEmbedFetchSingleRequest(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resolver := NewOEmbedResolver(server.Client(), Options{}, createTestLogger())
	_, err := resolver.Fetch(context.Background(), server.URL)

	assert.Error(t, err)
	assert.Equal(t, 1, calls, "oEmbed fetch must not retry")
}
