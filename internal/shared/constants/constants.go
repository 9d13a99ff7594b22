package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultUserAgent identifies scanner traffic in target access logs.
	DefaultUserAgent = "SecurityScanner/1.0"
	// DefaultOpTimeout bounds a single network operation (fetch, handshake, dial).
	DefaultOpTimeout = 10 * time.Second
	// DefaultScanDeadline bounds a whole scan of one target.
	DefaultScanDeadline = 300 * time.Second
	// DefaultTLSPort is where TLS handshakes are attempted.
	DefaultTLSPort = 443
	// DefaultPortWorkers caps concurrent TCP connects during discovery.
	DefaultPortWorkers = 20
	// DefaultPortTimeout bounds one TCP connect attempt during discovery.
	DefaultPortTimeout = 1500 * time.Millisecond
	// DefaultBlockingSlots caps concurrent blocking collaborator calls (fetch, handshake, discovery)
	DefaultBlockingSlots = 8
	// BannerReadLimitBytes caps how much of a service banner is read.
	BannerReadLimitBytes = 512
	// BannerReadTimeout bounds the banner read after a successful connect.
	BannerReadTimeout = time.Second
	// MaxRedirects is how many redirects the header fetch follows.
	MaxRedirects = 10
)

const (
	// HSTSMinMaxAge is one year in seconds.
	HSTSMinMaxAge = 31536000
	// CertExpiryWarningDays flags certificates that expire within this many days.
	CertExpiryWarningDays = 30
	// CertMaxValidityDays is the CA/B forum ceiling for leaf certificate lifetime.
	CertMaxValidityDays = 825
)
