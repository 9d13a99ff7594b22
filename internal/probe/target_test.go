package probe

import (
	"errors"
	"testing"

	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantHost string
		wantPort string
		wantURL  string
		wantErr  error
	}{
		{name: "bare host", input: "example.com", wantHost: "example.com", wantURL: "https://example.com/"},
		{name: "host with port", input: "example.com:8443", wantHost: "example.com", wantPort: "8443", wantURL: "https://example.com:8443/"},
		{name: "http url with path", input: "http://Example.com/login?next=1", wantHost: "example.com", wantURL: "http://Example.com/login?next=1"},
		{name: "ipv4", input: "192.0.2.10", wantHost: "192.0.2.10", wantURL: "https://192.0.2.10/"},
		{name: "ipv6 with port", input: "https://[2001:db8::1]:8443", wantHost: "2001:db8::1", wantPort: "8443", wantURL: "https://[2001:db8::1]:8443/"},
		{name: "surrounding spaces", input: "  example.org  ", wantHost: "example.org", wantURL: "https://example.org/"},
		{name: "empty", input: "   ", wantErr: domainerrors.ErrEmptyTarget},
		{name: "ftp scheme", input: "ftp://example.com", wantErr: domainerrors.ErrInvalidTarget},
		{name: "no host", input: "https:///path", wantErr: domainerrors.ErrInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseTarget(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTarget(%q) unexpected error: %v", tt.input, err)
			}
			if got.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", got.Host, tt.wantHost)
			}
			if got.Port != tt.wantPort {
				t.Errorf("Port = %q, want %q", got.Port, tt.wantPort)
			}
			if got.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", got.URL, tt.wantURL)
			}
		})
	}
}

func TestExtractHost(t *testing.T) {
	if got := ExtractHost("https://sub.example.com:8443/a/b"); got != "sub.example.com" {
		t.Errorf("ExtractHost = %q, want sub.example.com", got)
	}
	if got := ExtractHost(""); got != "" {
		t.Errorf("ExtractHost(\"\") = %q, want empty", got)
	}
}

func TestTargetIsIP(t *testing.T) {
	ip, _ := ParseTarget("10.0.0.1")
	if !ip.IsIP() {
		t.Errorf("10.0.0.1 should be an IP target")
	}
	host, _ := ParseTarget("example.com")
	if host.IsIP() {
		t.Errorf("example.com should not be an IP target")
	}
}
