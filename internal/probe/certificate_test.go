package probe

import (
	"testing"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
)

func TestAnalyzeCertificateExpiry(t *testing.T) {
	tests := []struct {
		name      string
		notAfter  time.Time
		wantTitle string
		wantSev   finding.Severity
		wantKey   string
		wantDays  int
	}{
		{name: "ten days left", notAfter: fixedNow.AddDate(0, 0, 10), wantTitle: "SSL Certificate Expiring Soon", wantSev: finding.SeverityHigh, wantKey: "days_until_expiry", wantDays: 10},
		{name: "twenty nine days left", notAfter: fixedNow.AddDate(0, 0, 29), wantTitle: "SSL Certificate Expiring Soon", wantSev: finding.SeverityHigh, wantKey: "days_until_expiry", wantDays: 29},
		{name: "expired five days ago", notAfter: fixedNow.AddDate(0, 0, -5), wantTitle: "SSL Certificate Expired", wantSev: finding.SeverityCritical, wantKey: "days_expired", wantDays: 5},
		{name: "expired an hour ago", notAfter: fixedNow.Add(-time.Hour), wantTitle: "SSL Certificate Expired", wantSev: finding.SeverityCritical, wantKey: "days_expired", wantDays: 1},
		{name: "thirty days left", notAfter: fixedNow.AddDate(0, 0, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := goodCert("example.com")
			cert.NotAfter = tt.notAfter
			got := AnalyzeCertificate("example.com", cert, fixedNow)

			if tt.wantTitle == "" {
				if len(got) != 0 {
					t.Fatalf("unexpected findings: %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("got %d findings, want 1: %+v", len(got), got)
			}
			f := got[0]
			if f.Title != tt.wantTitle || f.Severity != tt.wantSev {
				t.Errorf("finding = %q/%s, want %q/%s", f.Title, f.Severity, tt.wantTitle, tt.wantSev)
			}
			days, ok := f.Evidence.Get(tt.wantKey)
			if !ok {
				t.Fatalf("evidence missing %s: %v", tt.wantKey, f.Evidence.Keys())
			}
			if days != tt.wantDays {
				t.Errorf("evidence.%s = %v, want %d", tt.wantKey, days, tt.wantDays)
			}
		})
	}
}

func TestAnalyzeCertificateLongValidity(t *testing.T) {
	cert := goodCert("example.com")
	cert.NotBefore = fixedNow.AddDate(-2, 0, 0)
	cert.NotAfter = fixedNow.AddDate(1, 0, 0)

	got := AnalyzeCertificate("example.com", cert, fixedNow)
	if len(got) != 1 || got[0].Title != "Long Certificate Validity Period" {
		t.Fatalf("got %+v, want one long validity finding", got)
	}
	if got[0].Severity != finding.SeverityLow || got[0].Type != finding.TypeInformation {
		t.Errorf("finding = %s/%s, want low/information", got[0].Severity, got[0].Type)
	}
	if v, _ := got[0].Evidence.Get("validity_days"); v.(int) <= 825 {
		t.Errorf("validity_days = %v", v)
	}
}

func TestAnalyzeCertificateHostname(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		cert     Certificate
		mismatch bool
	}{
		{name: "exact san", host: "example.com", cert: Certificate{DNSNames: []string{"example.com"}}},
		{name: "wildcard san", host: "api.example.com", cert: Certificate{DNSNames: []string{"*.example.com"}}},
		{name: "wildcard does not span labels", host: "a.b.example.com", cert: Certificate{DNSNames: []string{"*.example.com"}}, mismatch: true},
		// SAN present but not naming the host is a mismatch, subject is not consulted
		{name: "san without host", host: "example.com", cert: Certificate{DNSNames: []string{"other.org"}}, mismatch: true},
		{name: "ip san", host: "192.0.2.1", cert: Certificate{IPAddresses: []string{"192.0.2.1"}}},
		{name: "no san subject match", host: "legacy.example.com", cert: Certificate{Subject: "CN=legacy.example.com,O=Example"}},
		{name: "no san subject mismatch", host: "example.com", cert: Certificate{Subject: "CN=localhost", CommonName: "localhost"}, mismatch: true},
		{name: "case insensitive", host: "example.com", cert: Certificate{DNSNames: []string{"EXAMPLE.COM"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := tt.cert
			cert.NotBefore = fixedNow.AddDate(0, -1, 0)
			cert.NotAfter = fixedNow.AddDate(0, 3, 0)
			got := byTitle(AnalyzeCertificate(tt.host, &cert, fixedNow), "SSL Certificate Hostname Mismatch")
			if tt.mismatch && len(got) != 1 {
				t.Fatalf("expected hostname mismatch finding")
			}
			if !tt.mismatch && len(got) != 0 {
				t.Fatalf("unexpected hostname mismatch: %+v", got)
			}
			if tt.mismatch && got[0].Severity != finding.SeverityHigh {
				t.Errorf("severity = %s, want high", got[0].Severity)
			}
		})
	}
}

func TestAnalyzeCertificateUnreadableExpiry(t *testing.T) {
	cert := goodCert("example.com")
	cert.NotAfter = time.Time{}
	got := AnalyzeCertificate("example.com", cert, fixedNow)
	if len(got) != 1 || got[0].Title != "SSL Certificate Expiry Unreadable" {
		t.Fatalf("got %+v, want one unreadable-expiry finding", got)
	}
	if got[0].Type != finding.TypeMisconfiguration {
		t.Errorf("type = %s, want misconfiguration", got[0].Type)
	}
}
