package probe

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// Target is a parsed scan target.
type Target struct {
	Original string // as given by the caller
	Scheme   string // http or https
	Host     string // hostname or IP, no port
	Port     string // explicit port, if any
	Path     string
	URL      string // URL used for the header fetch
}

// ParseTarget accepts bare hosts, host:port pairs and http(s) URLs:
//   - example.com
//   - example.com:8443
//   - https://example.com/login
//   - 192.0.2.10
//
// Bare hosts are fetched over https.
func ParseTarget(raw string) (Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Target{}, domainerrors.ErrEmptyTarget
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q: %v", domainerrors.ErrInvalidTarget, raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", domainerrors.ErrInvalidTarget, parsed.Scheme)
	}
	host := parsed.Hostname()
	if host == "" || strings.ContainsAny(host, " /\\") {
		return Target{}, fmt.Errorf("%w: no host in %q", domainerrors.ErrInvalidTarget, raw)
	}

	t := Target{
		Original: raw,
		Scheme:   parsed.Scheme,
		Host:     strings.ToLower(host),
		Port:     parsed.Port(),
		Path:     parsed.Path,
	}
	u := url.URL{Scheme: t.Scheme, Host: parsed.Host, Path: parsed.Path, RawQuery: parsed.RawQuery}
	if u.Path == "" {
		u.Path = "/"
	}
	t.URL = u.String()
	return t, nil
}

// ExtractHost returns the bare hostname of target, or "" when it cannot be parsed.
func ExtractHost(target string) string {
	t, err := ParseTarget(target)
	if err != nil {
		return ""
	}
	return t.Host
}

// IsIP reports whether the host is a literal address.
func (t Target) IsIP() bool {
	return net.ParseIP(t.Host) != nil
}
