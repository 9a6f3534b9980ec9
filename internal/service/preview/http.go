package preview

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultUserAgent identifies as a desktop browser; many sites serve a
	// stripped page to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	DefaultFetchTimeout  = 10 * time.Second
	DefaultMaxPageBytes  = 5 << 20
	DefaultCacheTTL      = 24 * time.Hour
	errorBodySampleBytes = 500
	// maxRedirects matches the net/http default policy
	maxRedirects = 10
)

// Options configures the outbound side of the pipeline
type Options struct {
	UserAgent    string
	FetchTimeout time.Duration
	MaxPageBytes int64
	// DeniedHosts are glob patterns (e.g. "*.internal", "169.254.*") for hosts
	// that must never be fetched
	DeniedHosts []string
	CacheTTL    time.Duration
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.MaxPageBytes <= 0 {
		o.MaxPageBytes = DefaultMaxPageBytes
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	return o
}

// FetchError reports a failed outbound request. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
