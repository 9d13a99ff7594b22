package probe

import (
	"context"
	"net/http"
	"time"
)

// FetchResult is the part of an HTTP exchange the header probe evaluates.
type FetchResult struct {
	StatusCode int
	URL        string // final URL after redirects
	Header     http.Header
}

// Fetcher performs one GET of a URL, following redirects.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// HandshakeRequest describes one TLS connection attempt.
type HandshakeRequest struct {
	Host         string
	Port         int
	Version      uint16   // crypto/tls version constant; 0 lets the peers pick the best
	CipherSuites []uint16 // nil means library defaults
}

// Certificate is the view of a peer leaf certificate the TLS probe analyses.
type Certificate struct {
	Subject            string
	CommonName         string
	Issuer             string
	DNSNames           []string
	IPAddresses        []string
	SerialNumber       string
	SignatureAlgorithm string
	KeyBits            int
	NotBefore          time.Time
	NotAfter           time.Time
}

// Handshake is the negotiated outcome of a successful attempt.
type Handshake struct {
	Version     string // e.g. "TLSv1.2"
	CipherSuite string
	CipherBits  int
	Certificate *Certificate
}

// Connector performs TLS handshakes with certificate verification disabled.
type Connector interface {
	Handshake(ctx context.Context, req HandshakeRequest) (*Handshake, error)
}

// OpenPort is one service found listening on the host
type OpenPort struct {
	Port      int    `json:"port"`
	Protocol  string `json:"protocol"`
	Service   string `json:"service"`
	Product   string `json:"product,omitempty"`
	Version   string `json:"version,omitempty"`
	ExtraInfo string `json:"extra_info,omitempty"`
}

// Discovery is the result of enumerating services on a host.
type Discovery struct {
	HostUp    bool
	OpenPorts []OpenPort
}

// Discoverer enumerates open ports and their services
type Discoverer interface {
	Discover(ctx context.Context, host string) (*Discovery, error)
}
