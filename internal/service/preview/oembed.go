package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"bookmark-preview/internal/domain"
)

// OEmbedResolver fetches oEmbed JSON and maps it to a PreviewResult
type OEmbedResolver struct {
	logger       *slog.Logger
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewOEmbedResolver creates a new oEmbed resolver
func NewOEmbedResolver(httpClient *http.Client, opts Options, logger *slog.Logger) *OEmbedResolver {
	opts = opts.withDefaults()
	if httpClient == nil {
		httpClient = newHTTPClient(opts.FetchTimeout)
	}
	return &OEmbedResolver{
		logger:       logger,
		httpClient:   httpClient,
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxPageBytes,
	}
}

// Fetch performs exactly one GET against endpointURL. Transport failures,
// non-2xx responses and bodies that are not a JSON object are returned as errors.
func (e *OEmbedResolver) Fetch(ctx context.Context, endpointURL string) (*domain.PreviewResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, &FetchError{URL: endpointURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	// Some providers check the User-Agent
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: endpointURL, Err: err}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodySampleBytes))
		e.logger.Debug("oEmbed endpoint returned error status",
			"endpoint", endpointURL,
			"status", resp.StatusCode,
			"body", string(body))
		return nil, &FetchError{URL: endpointURL, StatusCode: resp.StatusCode}
	}

	// Field types vary between providers (numeric vs string widths), so only
	// the fields that are used get type-checked.
	var data map[string]interface{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, e.maxBodyBytes)).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse oEmbed response from %s: %w", endpointURL, err)
	}
	if data == nil {
		return nil, fmt.Errorf("oEmbed response from %s is not an object", endpointURL)
	}

	result := oembedToPreview(data)

	e.logger.Debug("oEmbed extraction successful",
		"endpoint", endpointURL,
		"type", data["type"],
		"provider", data["provider_name"],
		"has_thumbnail", result.ThumbnailURL != nil,
		"has_html", result.EmbedHTML != nil)

	return &result, nil
}

// oembedToPreview maps oEmbed fields onto a PreviewResult.
// See: https://oembed.com/#section2.3
func oembedToPreview(data map[string]interface{}) domain.PreviewResult {
	thumbnail := stringField(data, "thumbnail_url")
	if thumbnail == nil {
		thumbnail = stringField(data, "thumbnail")
	}
	return domain.PreviewResult{
		Title:        stringField(data, "title"),
		Description:  stringField(data, "description"),
		ThumbnailURL: thumbnail,
		EmbedHTML:    stringField(data, "html"),
	}
}

func stringField(data map[string]interface{}, key string) *string {
	s, ok := data[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
