package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
)

const (
	tlsKey        = "tls"
	tlsLocation   = "SSL/TLS"
	tlsScanFailed = "TLS Scan Failed"
	unsupported   = "unsupported"
)

// tlsAttempt is one requested protocol in the enumeration.
type tlsAttempt struct {
	Label   string
	Version uint16
}

// tlsAttempts is enumerated in order; Version 0 lets the peers pick the best protocol.
var tlsAttempts = []tlsAttempt{
	{Label: "TLSv1.0", Version: tls.VersionTLS10},
	{Label: "TLSv1.1", Version: tls.VersionTLS11},
	{Label: "TLSv1.2", Version: tls.VersionTLS12},
	{Label: "best available", Version: 0},
}

// versionSSL30 is the legacy SSL 3.0 protocol version (0x0300).
const versionSSL30 uint16 = 0x0300

var weakProtocols = map[string]bool{
	"TLSv1.0": true,
	"TLSv1.1": true,
}

// curatedCipherSuites is the high-security policy offered in the cipher check.
var curatedCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}

var weakCipherMarkers = []string{"RC4", "DES", "MD5", "NULL"}

// TLSPolicyProbe enumerates negotiated protocol versions, inspects the peer
// certificate and checks the negotiated cipher.
type TLSPolicyProbe struct {
	Connector Connector
	Port      int
	Timeout   time.Duration
	Pool      *Pool
	Clock     Clock
}

// Name implements Probe.
func (p *TLSPolicyProbe) Name() string {
	return "TLSPolicyProbe"
}

func (p *TLSPolicyProbe) Location() string {
	return tlsLocation
}

// Scan implements Probe.
func (p *TLSPolicyProbe) Scan(ctx context.Context, target string) (findings []finding.Finding) {
	defer recoverScan(&findings, tlsKey, tlsScanFailed, tlsLocation)

	host := ExtractHost(target)
	if host == "" {
		return []finding.Finding{tlsFailure(target, 0, fmt.Errorf("cannot extract host from %q", target))}
	}
	if p.Connector == nil {
		return []finding.Finding{tlsFailure(host, 0, fmt.Errorf("no TLS connector configured"))}
	}
	port := p.Port
	if port <= 0 {
		port = constants.DefaultTLSPort
	}

	protocols := finding.NewEvidence()
	var negotiated []string
	var first *Handshake
	var lastErr error

	for _, attempt := range tlsAttempts {
		hs, err := p.handshake(ctx, HandshakeRequest{Host: host, Port: port, Version: attempt.Version})
		if err != nil || hs == nil {
			protocols = protocols.With(attempt.Label, unsupported)
			if err != nil {
				lastErr = err
			}
			continue
		}
		protocols = protocols.With(attempt.Label, hs.Version)
		negotiated = appendUnique(negotiated, hs.Version)
		if first == nil {
			first = hs
		}
	}

	if first == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("no handshake succeeded")
		}
		f := tlsFailure(host, port, lastErr)
		f.Evidence = f.Evidence.With("protocols", protocols)
		return []finding.Finding{f}
	}

	findings = append(findings, EvaluateProtocols(host, negotiated, protocols)...)

	if first.Certificate != nil {
		findings = append(findings, AnalyzeCertificate(host, first.Certificate, p.Clock.now())...)
	} else {
		findings = append(findings, missingCertificateFinding(host))
	}

	// Best effort: any failure here is ignored.
	cipherHS, err := p.handshake(ctx, HandshakeRequest{Host: host, Port: port, CipherSuites: curatedCipherSuites})
	if err == nil && cipherHS != nil {
		if f, weak := EvaluateCipher(host, cipherHS); weak {
			findings = append(findings, f)
		}
	}

	return findings
}

func (p *TLSPolicyProbe) handshake(ctx context.Context, req HandshakeRequest) (*Handshake, error) {
	opCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(p.Timeout))
	defer cancel()
	return Blocking(opCtx, p.Pool, func(ctx context.Context) (*Handshake, error) {
		return p.Connector.Handshake(ctx, req)
	})
}

func tlsFailure(host string, port int, err error) finding.Finding {
	f := finding.Error(finding.NewID(tlsKey, "scan-failed"), tlsScanFailed, tlsLocation, err)
	f.Evidence = f.Evidence.With("host", host)
	if port > 0 {
		f.Evidence = f.Evidence.With("port", port)
	}
	return f
}

// EvaluateProtocols reports weak protocol support. negotiated holds each distinct
// version the server agreed to, in enumeration order.
func EvaluateProtocols(host string, negotiated []string, protocols finding.Evidence) []finding.Finding {
	var weak []string
	for _, v := range negotiated {
		if weakProtocols[v] {
			weak = append(weak, v)
		}
	}
	if len(weak) == 0 {
		return nil
	}

	evidence := finding.NewEvidence().
		With("weak_versions", weak).
		With("negotiated_versions", negotiated).
		With("protocols", protocols)

	if len(weak) == len(negotiated) {
		return []finding.Finding{{
			ID:            finding.NewID(tlsKey, "only-weak-protocols", strings.Join(weak, ",")),
			Type:          finding.TypeVulnerability,
			Severity:      finding.SeverityCritical,
			Title:         "Only Weak TLS Protocols Supported",
			Description:   fmt.Sprintf("%s only negotiates deprecated protocol versions: %s", host, strings.Join(weak, ", ")),
			Remediation:   "Enable TLS 1.2 and TLS 1.3 and disable TLS 1.0 and TLS 1.1",
			OWASPCategory: finding.OWASPCryptographicFailures,
			Location:      tlsLocation,
			Evidence:      evidence,
		}}
	}
	return []finding.Finding{{
		ID:            finding.NewID(tlsKey, "weak-protocols", strings.Join(weak, ",")),
		Type:          finding.TypeVulnerability,
		Severity:      finding.SeverityHigh,
		Title:         "Weak TLS Protocols Supported",
		Description:   fmt.Sprintf("%s still accepts deprecated protocol versions: %s", host, strings.Join(weak, ", ")),
		Remediation:   "Disable TLS 1.0 and TLS 1.1 and keep TLS 1.2 or newer",
		OWASPCategory: finding.OWASPCryptographicFailures,
		Location:      tlsLocation,
		Evidence:      evidence,
	}}
}

// EvaluateCipher reports whether the negotiated cipher contains a weak primitive.
func EvaluateCipher(host string, hs *Handshake) (finding.Finding, bool) {
	upper := strings.ToUpper(hs.CipherSuite)
	for _, marker := range weakCipherMarkers {
		if !strings.Contains(upper, marker) {
			continue
		}
		return finding.Finding{
			ID:            finding.NewID(tlsKey, "weak-cipher", hs.CipherSuite),
			Type:          finding.TypeVulnerability,
			Severity:      finding.SeverityHigh,
			Title:         "Weak Cipher Suite Negotiated",
			Description:   fmt.Sprintf("%s negotiated %s, which relies on %s", host, hs.CipherSuite, marker),
			Remediation:   "Restrict the server to AEAD cipher suites (AES-GCM, ChaCha20-Poly1305) with forward secrecy",
			OWASPCategory: finding.OWASPCryptographicFailures,
			Location:      tlsLocation,
			Evidence: finding.NewEvidence().
				With("cipher", hs.CipherSuite).
				With("protocol", hs.Version).
				With("bits", hs.CipherBits),
		}, true
	}
	return finding.Finding{}, false
}

func missingCertificateFinding(host string) finding.Finding {
	return finding.Finding{
		ID:            finding.NewID(tlsKey, "no-certificate", host),
		Type:          finding.TypeMisconfiguration,
		Severity:      finding.SeverityMedium,
		Title:         "Peer Certificate Unavailable",
		Description:   fmt.Sprintf("%s completed a handshake without presenting a certificate", host),
		Remediation:   "Configure the server to present a certificate chain for this hostname",
		OWASPCategory: finding.OWASPCryptographicFailures,
		Location:      tlsLocation,
		Evidence:      finding.NewEvidence().With("hostname", host),
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// VersionName maps a crypto/tls version constant to the names used in findings.
func VersionName(version uint16) string {
	switch version {
	case versionSSL30:
		return "SSLv3"
	case tls.VersionTLS10:
		return "TLSv1.0"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS13:
		return "TLSv1.3"
	default:
		return "0x" + strconv.FormatUint(uint64(version), 16)
	}
}
