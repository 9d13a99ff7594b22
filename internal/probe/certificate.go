package probe

import (
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
)

// AnalyzeCertificate checks the lifecycle and identity of a peer certificate as seen at now.
func AnalyzeCertificate(host string, cert *Certificate, now time.Time) []finding.Finding {
	var findings []finding.Finding

	if cert.NotAfter.IsZero() {
		findings = append(findings, finding.Finding{
			ID:            finding.NewID(tlsKey, "cert-expiry-unreadable", host),
			Type:          finding.TypeMisconfiguration,
			Severity:      finding.SeverityMedium,
			Title:         "SSL Certificate Expiry Unreadable",
			Description:   fmt.Sprintf("The certificate presented by %s has no usable notAfter date", host),
			Remediation:   "Reissue the certificate with a valid validity period",
			OWASPCategory: finding.OWASPCryptographicFailures,
			Location:      tlsLocation,
			Evidence:      certEvidence(cert),
		})
	} else {
		days := daysBetween(now, cert.NotAfter)
		notAfter := cert.NotAfter.UTC().Format(time.RFC3339)
		switch {
		case days < 0:
			findings = append(findings, finding.Finding{
				ID:            finding.NewID(tlsKey, "cert-expired", host),
				Type:          finding.TypeVulnerability,
				Severity:      finding.SeverityCritical,
				Title:         "SSL Certificate Expired",
				Description:   fmt.Sprintf("The certificate for %s expired %d days ago", host, -days),
				Remediation:   "Renew the certificate immediately and automate renewal",
				OWASPCategory: finding.OWASPCryptographicFailures,
				Location:      tlsLocation,
				Evidence:      certEvidence(cert).With("not_after", notAfter).With("days_expired", -days),
			})
		case days < constants.CertExpiryWarningDays:
			findings = append(findings, finding.Finding{
				ID:            finding.NewID(tlsKey, "cert-expiring", host),
				Type:          finding.TypeVulnerability,
				Severity:      finding.SeverityHigh,
				Title:         "SSL Certificate Expiring Soon",
				Description:   fmt.Sprintf("The certificate for %s expires in %d days", host, days),
				Remediation:   "Renew the certificate before it expires and automate renewal",
				OWASPCategory: finding.OWASPCryptographicFailures,
				Location:      tlsLocation,
				Evidence:      certEvidence(cert).With("not_after", notAfter).With("days_until_expiry", days),
			})
		}

		if !cert.NotBefore.IsZero() {
			validity := daysBetween(cert.NotBefore, cert.NotAfter)
			if validity > constants.CertMaxValidityDays {
				findings = append(findings, finding.Finding{
					ID:            finding.NewID(tlsKey, "cert-long-validity", host),
					Type:          finding.TypeInformation,
					Severity:      finding.SeverityLow,
					Title:         "Long Certificate Validity Period",
					Description:   fmt.Sprintf("The certificate for %s is valid for %d days, more than %d", host, validity, constants.CertMaxValidityDays),
					Remediation:   "Use certificates with shorter lifetimes and automated renewal",
					OWASPCategory: finding.OWASPCryptographicFailures,
					Location:      tlsLocation,
					Evidence:      certEvidence(cert).With("validity_days", validity),
				})
			}
		}
	}

	if !certMatchesHost(cert, host) {
		findings = append(findings, finding.Finding{
			ID:            finding.NewID(tlsKey, "hostname-mismatch", host),
			Type:          finding.TypeVulnerability,
			Severity:      finding.SeverityHigh,
			Title:         "SSL Certificate Hostname Mismatch",
			Description:   fmt.Sprintf("The certificate presented by %s is not issued for that hostname", host),
			Remediation:   "Issue a certificate whose subject alternative names include this hostname",
			OWASPCategory: finding.OWASPCryptographicFailures,
			Location:      tlsLocation,
			Evidence:      certEvidence(cert).With("hostname", host),
		})
	}

	return findings
}

func certEvidence(cert *Certificate) finding.Evidence {
	return finding.NewEvidence().
		With("subject", cert.Subject).
		With("issuer", cert.Issuer).
		With("san", append([]string{}, cert.DNSNames...))
}

// whole days from a to b, floored
func daysBetween(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}

// certMatchesHost checks SAN entries when present, otherwise the subject.
func certMatchesHost(cert *Certificate, host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	if len(cert.DNSNames) > 0 || len(cert.IPAddresses) > 0 {
		if ip := net.ParseIP(host); ip != nil {
			for _, candidate := range cert.IPAddresses {
				if other := net.ParseIP(candidate); other != nil && other.Equal(ip) {
					return true
				}
			}
			return false
		}
		for _, name := range cert.DNSNames {
			if matchHostname(strings.ToLower(name), host) {
				return true
			}
		}
		return false
	}

	if cert.CommonName != "" && matchHostname(strings.ToLower(cert.CommonName), host) {
		return true
	}
	return strings.Contains(strings.ToLower(cert.Subject), host)
}

func matchHostname(pattern, host string) bool {
	pattern = strings.TrimSuffix(pattern, ".")
	if pattern == host {
		return true
	}
	if !strings.HasPrefix(pattern, "*.") {
		return false
	}
	suffix := pattern[1:]
	if !strings.HasSuffix(host, suffix) {
		return false
	}
	label := strings.TrimSuffix(host, suffix)
	return label != "" && !strings.Contains(label, ".")
}
