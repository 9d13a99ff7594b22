package probe

import (
	"context"
	"net/http"
	"time"
)

type fakeFetcher struct {
	header http.Header
	err    error
	panic  bool
	delay  time.Duration
	urls   []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	f.urls = append(f.urls, url)
	if f.panic {
		panic("fetcher exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &FetchResult{StatusCode: http.StatusOK, URL: url, Header: f.header}, nil
}

// fakeConnector answers handshakes from a table keyed by requested version.
type fakeConnector struct {
	byVersion map[uint16]*Handshake
	cipher    *Handshake
	cipherErr error
	err       error
	requests  []HandshakeRequest
}

func (c *fakeConnector) Handshake(_ context.Context, req HandshakeRequest) (*Handshake, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if req.CipherSuites != nil {
		if c.cipherErr != nil {
			return nil, c.cipherErr
		}
		if c.cipher != nil {
			return c.cipher, nil
		}
	}
	if hs, ok := c.byVersion[req.Version]; ok && hs != nil {
		return hs, nil
	}
	return nil, errHandshakeRefused
}

type fakeDiscoverer struct {
	result *Discovery
	err    error
	hosts  []string
}

func (d *fakeDiscoverer) Discover(_ context.Context, host string) (*Discovery, error) {
	d.hosts = append(d.hosts, host)
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

type refusedError struct{}

func (refusedError) Error() string { return "remote error: tls: protocol version not supported" }

var errHandshakeRefused error = refusedError{}

func headerOf(pairs ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Set(pairs[i], pairs[i+1])
	}
	return h
}

// secureHeaders satisfies every header policy.
func secureHeaders() http.Header {
	return headerOf(
		"Content-Security-Policy", "default-src 'self'",
		"X-Frame-Options", "DENY",
		"X-Content-Type-Options", "nosniff",
		"Strict-Transport-Security", "max-age=31536000; includeSubDomains",
		"X-XSS-Protection", "1; mode=block",
		"Referrer-Policy", "no-referrer",
		"Permissions-Policy", "geolocation=()",
	)
}
