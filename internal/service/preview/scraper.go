package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"bookmark-preview/internal/domain"

	"github.com/ryanuber/go-glob"
	"golang.org/x/net/html/charset"
)

// Scraper fetches a page and extracts its preview from the HTML
type Scraper struct {
	logger       *slog.Logger
	httpClient   *http.Client
	userAgent    string
	maxPageBytes int64
	deniedHosts  []string
}

// NewScraper creates a new generic HTML scraper
func NewScraper(httpClient *http.Client, opts Options, logger *slog.Logger) *Scraper {
	opts = opts.withDefaults()
	if httpClient == nil {
		httpClient = newHTTPClient(opts.FetchTimeout)
	}
	s := &Scraper{
		logger:       logger,
		userAgent:    opts.UserAgent,
		maxPageBytes: opts.MaxPageBytes,
		deniedHosts:  opts.DeniedHosts,
	}

	// The client may be shared with the oEmbed path, so the redirect check
	// goes on a copy
	client := *httpClient
	client.CheckRedirect = s.checkRedirect
	s.httpClient = &client
	return s
}

// checkRedirect applies the deny-list to every redirect hop
func (s *Scraper) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if host := req.URL.Hostname(); s.isDenied(host) {
		return &FetchError{URL: req.URL.String(), Err: fmt.Errorf("redirect to host %q is denied", host)}
	}
	return nil
}

// Scrape fetches pageURL and returns the title, description and thumbnail
// found in it. EmbedHTML is always nil on this path.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (domain.PreviewResult, error) {
	body, err := s.fetchHTML(ctx, pageURL)
	if err != nil {
		return domain.PreviewResult{}, err
	}

	meta := ParseMeta(body, pageURL)
	return domain.PreviewResult{
		Title:        meta.Title,
		Description:  meta.Description,
		ThumbnailURL: FindThumbnail(body, pageURL),
	}, nil
}

// fetchHTML performs one GET with browser headers and returns the body as
// UTF-8 text, truncated to maxPageBytes.
func (s *Scraper) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	if host := hostOf(pageURL); host != "" && s.isDenied(host) {
		return "", &FetchError{URL: pageURL, Err: fmt.Errorf("host %q is denied", host)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", htmlAccept)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var denied *FetchError
		if errors.As(err, &denied) {
			return "", denied
		}
		return "", &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxPageBytes))
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return s.toUTF8(raw, resp.Header.Get("Content-Type"), pageURL), nil
}

// toUTF8 transcodes raw using the charset from contentType or the document's
// own <meta charset>. Undecodable input is returned unchanged.
func (s *Scraper) toUTF8(raw []byte, contentType, pageURL string) string {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		s.logger.Debug("Unknown page charset, using raw bytes", "url", pageURL, "content_type", contentType, "error", err)
		return string(raw)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		s.logger.Debug("Failed to transcode page, using raw bytes", "url", pageURL, "error", err)
		return string(raw)
	}
	return string(decoded)
}

func (s *Scraper) isDenied(host string) bool {
	host = strings.ToLower(host)
	for _, pattern := range s.deniedHosts {
		if glob.Glob(strings.ToLower(pattern), host) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
