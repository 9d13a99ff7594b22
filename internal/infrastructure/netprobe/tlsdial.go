package netprobe

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-scan/internal/probe"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// TLSDialer implements probe.Connector with crypto/tls. Certificates are never
// verified: the probe inspects them itself.
type TLSDialer struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// Handshake implements probe.Connector. A non-zero req.Version pins both the
// minimum and maximum protocol version.
func (d *TLSDialer) Handshake(ctx context.Context, req probe.HandshakeRequest) (*probe.Handshake, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultOpTimeout
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	port := req.Port
	if port <= 0 {
		port = constants.DefaultTLSPort
	}
	addr := net.JoinHostPort(req.Host, strconv.Itoa(port))

	cfg := &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // diagnostic handshake
		MinVersion:         tls.VersionTLS10,
	}
	if net.ParseIP(req.Host) == nil {
		cfg.ServerName = req.Host
	}
	if req.Version != 0 {
		cfg.MinVersion = req.Version
		cfg.MaxVersion = req.Version
	}
	if req.CipherSuites != nil {
		cfg.CipherSuites = req.CipherSuites
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config:    cfg,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.Debug("tls handshake failed",
			zap.String("addr", addr),
			zap.String("requested", requestedVersion(req.Version)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s (%s): %w", domainerrors.ErrHandshakeFailed, addr, requestedVersion(req.Version), err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unexpected connection type %T", domainerrors.ErrHandshakeFailed, addr, conn)
	}
	state := tlsConn.ConnectionState()

	cipher := tls.CipherSuiteName(state.CipherSuite)
	hs := &probe.Handshake{
		Version:     probe.VersionName(state.Version),
		CipherSuite: cipher,
		CipherBits:  cipherBits(cipher),
	}
	if len(state.PeerCertificates) > 0 {
		hs.Certificate = CertificateView(state.PeerCertificates[0])
	}

	logger.Debug("tls handshake completed",
		zap.String("addr", addr),
		zap.String("requested", requestedVersion(req.Version)),
		zap.String("negotiated", hs.Version),
		zap.String("cipher", cipher))
	return hs, nil
}

func requestedVersion(v uint16) string {
	if v == 0 {
		return "best available"
	}
	return probe.VersionName(v)
}

// cipherBits estimates the symmetric key strength from a cipher suite name.
func cipherBits(name string) int {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "NULL"):
		return 0
	case strings.Contains(upper, "AES_256"), strings.Contains(upper, "AES256"), strings.Contains(upper, "CHACHA20"):
		return 256
	case strings.Contains(upper, "AES_128"), strings.Contains(upper, "AES128"), strings.Contains(upper, "RC4_128"):
		return 128
	case strings.Contains(upper, "3DES"), strings.Contains(upper, "DES_EDE"):
		return 112
	case strings.Contains(upper, "DES"):
		return 56
	default:
		return 0
	}
}

// CertificateView projects an x509 certificate onto the probe's certificate model.
func CertificateView(cert *x509.Certificate) *probe.Certificate {
	view := &probe.Certificate{
		Subject:            cert.Subject.String(),
		CommonName:         cert.Subject.CommonName,
		Issuer:             cert.Issuer.String(),
		DNSNames:           append([]string{}, cert.DNSNames...),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		NotBefore:          cert.NotBefore,
		NotAfter:           cert.NotAfter,
	}
	if cert.SerialNumber != nil {
		view.SerialNumber = cert.SerialNumber.Text(16)
	}
	for _, ip := range cert.IPAddresses {
		view.IPAddresses = append(view.IPAddresses, ip.String())
	}

	switch key := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		view.KeyBits = key.N.BitLen()
	case *ecdsa.PublicKey:
		view.KeyBits = key.Curve.Params().BitSize
	case ed25519.PublicKey:
		view.KeyBits = 256
	}
	return view
}
