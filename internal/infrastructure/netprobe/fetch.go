package netprobe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-scan/internal/probe"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// bodyDrainLimit is how much of a response body is read before closing so the
// connection can be reused.
const bodyDrainLimit = 64 << 10

// HTTPFetcher performs the single GET the header probe evaluates.
type HTTPFetcher struct {
	UserAgent          string
	MaxRedirects       int
	InsecureSkipVerify bool
	Logger             *zap.Logger

	client *http.Client
}

// NewHTTPFetcher builds a fetcher whose client follows up to maxRedirects redirects.
func NewHTTPFetcher(userAgent string, maxRedirects int, insecure bool, logger *zap.Logger) *HTTPFetcher {
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}
	if maxRedirects <= 0 {
		maxRedirects = constants.MaxRedirects
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &HTTPFetcher{
		UserAgent:          userAgent,
		MaxRedirects:       maxRedirects,
		InsecureSkipVerify: insecure,
		Logger:             logger,
	}
	f.client = &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			// Certificate problems are reported by the TLS probe, not here.
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: insecure}, //nolint:gosec
			TLSHandshakeTimeout: constants.DefaultOpTimeout,
			MaxIdleConnsPerHost: 2,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", f.MaxRedirects)
			}
			return nil
		},
	}
	return f
}

// Fetch implements probe.Fetcher. The caller's context bounds the whole exchange.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*probe.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domainerrors.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", domainerrors.ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, bodyDrainLimit))

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	f.Logger.Debug("fetched target",
		zap.String("url", url),
		zap.String("final_url", final),
		zap.Int("status", resp.StatusCode))

	return &probe.FetchResult{
		StatusCode: resp.StatusCode,
		URL:        final,
		Header:     resp.Header.Clone(),
	}, nil
}
