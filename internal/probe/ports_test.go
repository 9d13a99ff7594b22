package probe

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
)

func openPorts(ports ...int) []OpenPort {
	out := make([]OpenPort, len(ports))
	for i, p := range ports {
		out[i] = OpenPort{Port: p, Protocol: "tcp"}
	}
	return out
}

func TestEvaluatePortsHostDown(t *testing.T) {
	got := EvaluatePorts("example.com", Discovery{HostUp: false, OpenPorts: openPorts(80)})
	if len(got) != 1 {
		t.Fatalf("got %d findings, want 1", len(got))
	}
	if got[0].Title != "Host Unreachable" || got[0].Severity != finding.SeverityInfo {
		t.Errorf("finding = %q/%s", got[0].Title, got[0].Severity)
	}
}

func TestEvaluatePortsHTTPWithoutHTTPS(t *testing.T) {
	tests := []struct {
		name  string
		ports []int
		want  bool
	}{
		{name: "only 80", ports: []int{80}, want: true},
		{name: "80 and 443", ports: []int{80, 443}, want: false},
		{name: "only 443", ports: []int{443}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := byTitle(EvaluatePorts("h", Discovery{HostUp: true, OpenPorts: openPorts(tt.ports...)}), "HTTP Without HTTPS")
			if (len(got) == 1) != tt.want {
				t.Fatalf("HTTP Without HTTPS present = %v, want %v", len(got) == 1, tt.want)
			}
			if tt.want && got[0].Severity != finding.SeverityHigh {
				t.Errorf("severity = %s, want high", got[0].Severity)
			}
		})
	}
}

func TestEvaluatePortsDatabaseExposure(t *testing.T) {
	got := EvaluatePorts("h", Discovery{HostUp: true, OpenPorts: openPorts(5432, 22)})

	var critical []finding.Finding
	for _, f := range got {
		if f.Severity == finding.SeverityCritical {
			critical = append(critical, f)
		}
	}
	if len(critical) != 1 {
		t.Fatalf("got %d critical findings, want exactly 1", len(critical))
	}
	exposed, _ := critical[0].Evidence.Get("exposed_ports")
	if !reflect.DeepEqual(exposed, []int{5432}) {
		t.Errorf("evidence.exposed_ports = %v, want [5432]", exposed)
	}
}

func TestEvaluatePortsAggregatesEmittedOnce(t *testing.T) {
	ports := append(openPorts(3306, 6379, 27017, 3000, 5000, 8080), openPorts(3306)...)
	got := EvaluatePorts("h", Discovery{HostUp: true, OpenPorts: ports})

	db := byTitle(got, "Database Ports Exposed")
	if len(db) != 1 {
		t.Fatalf("Database Ports Exposed emitted %d times", len(db))
	}
	if exposed, _ := db[0].Evidence.Get("exposed_ports"); !reflect.DeepEqual(exposed, []int{3306, 6379, 27017}) {
		t.Errorf("database exposed_ports = %v", exposed)
	}

	dev := byTitle(got, "Development Servers Exposed")
	if len(dev) != 1 {
		t.Fatalf("Development Servers Exposed emitted %d times", len(dev))
	}
	if dev[0].Severity != finding.SeverityMedium {
		t.Errorf("dev severity = %s, want medium", dev[0].Severity)
	}
	if exposed, _ := dev[0].Evidence.Get("exposed_ports"); !reflect.DeepEqual(exposed, []int{3000, 5000, 8080}) {
		t.Errorf("dev exposed_ports = %v", exposed)
	}
}

func TestClassifyPortSeverity(t *testing.T) {
	tests := []struct {
		name     string
		port     OpenPort
		wantSev  finding.Severity
		wantType finding.Type
		title    string
	}{
		{name: "telnet", port: OpenPort{Port: 23, Service: "telnet"}, wantSev: finding.SeverityHigh, wantType: finding.TypeVulnerability, title: "Open Port: 23/telnet"},
		{name: "https is info", port: OpenPort{Port: 443, Service: "https"}, wantSev: finding.SeverityInfo, wantType: finding.TypeInformation},
		{name: "db plain", port: OpenPort{Port: 5432, Service: "postgresql"}, wantSev: finding.SeverityHigh, wantType: finding.TypeVulnerability},
		{name: "db with ssl keeps base", port: OpenPort{Port: 6379, Service: "redis", ExtraInfo: "SSL/TLS required"}, wantSev: finding.SeverityHigh, wantType: finding.TypeVulnerability},
		{name: "unlisted port", port: OpenPort{Port: 12345, Service: "unknown"}, wantSev: finding.SeverityInfo, wantType: finding.TypeInformation, title: "Open Port Found: 12345/unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.port.Protocol = "tcp"
			f := classifyPort(tt.port)
			if f.Severity != tt.wantSev || f.Type != tt.wantType {
				t.Errorf("classifyPort = %s/%s, want %s/%s", f.Severity, f.Type, tt.wantSev, tt.wantType)
			}
			if tt.title != "" && f.Title != tt.title {
				t.Errorf("title = %q, want %q", f.Title, tt.title)
			}
			if f.Location == "" || !strings.HasPrefix(f.Location, "Port ") {
				t.Errorf("location = %q", f.Location)
			}
		})
	}
}

func TestDatabaseEscalationHonoursEncryptionMarkers(t *testing.T) {
	// Every database row of the table is already high, so the marker only matters
	// when the table is changed; guard the predicate directly.
	for _, extra := range []string{"SSL required", "tls enabled", "Encrypted"} {
		if !hasEncryptedTransport(extra) {
			t.Errorf("hasEncryptedTransport(%q) = false", extra)
		}
	}
	for _, extra := range []string{"", "protocol 3.0", "auth required"} {
		if hasEncryptedTransport(extra) {
			t.Errorf("hasEncryptedTransport(%q) = true", extra)
		}
	}
}

func TestEvaluatePortsVersionDisclosure(t *testing.T) {
	ports := []OpenPort{
		{Port: 22, Protocol: "tcp", Service: "ssh", Product: "OpenSSH", Version: "8.9p1"},
		{Port: 8081, Protocol: "tcp", Service: "http", Product: "Jetty", Version: "9.4"},
		{Port: 21, Protocol: "tcp", Service: "ftp", Version: "unknown"},
		{Port: 25, Protocol: "tcp", Service: "smtp"},
	}
	got := EvaluatePorts("h", Discovery{HostUp: true, OpenPorts: ports})

	var disclosures []string
	for _, f := range got {
		if f.Type == finding.TypeInformationDisclosure {
			disclosures = append(disclosures, f.Location)
			if f.Severity != finding.SeverityLow {
				t.Errorf("%s severity = %s, want low", f.Title, f.Severity)
			}
		}
	}
	if !reflect.DeepEqual(disclosures, []string{"Port 22", "Port 8081"}) {
		t.Errorf("version disclosures at %v, want [Port 22 Port 8081]", disclosures)
	}
}

func TestEvaluatePortsOrderAndIdempotence(t *testing.T) {
	shuffled := Discovery{HostUp: true, OpenPorts: openPorts(8080, 80, 22)}
	sorted := Discovery{HostUp: true, OpenPorts: openPorts(22, 80, 8080)}

	a := EvaluatePorts("h", shuffled)
	b := EvaluatePorts("h", sorted)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("finding order depends on discovery order")
	}

	var titles []string
	for _, f := range a {
		titles = append(titles, f.Title)
	}
	want := []string{
		"Open Port: 22/ssh",
		"Open Port: 80/http",
		"Open Port: 8080/http-alt",
		"HTTP Without HTTPS",
		"Development Servers Exposed",
	}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("titles = %v, want %v", titles, want)
	}
}

func TestPortRiskProbeScan(t *testing.T) {
	disc := &fakeDiscoverer{result: &Discovery{HostUp: true, OpenPorts: openPorts(443)}}
	p := &PortRiskProbe{Discoverer: disc}

	got := p.Scan(context.Background(), "https://example.com:8443/path")
	if len(got) != 1 || got[0].Severity != finding.SeverityInfo {
		t.Fatalf("Scan() = %+v, want one informational finding", got)
	}
	if len(disc.hosts) != 1 || disc.hosts[0] != "example.com" {
		t.Errorf("discovered %v, want [example.com]", disc.hosts)
	}
}

func TestPortRiskProbeDiscoveryFailure(t *testing.T) {
	p := &PortRiskProbe{Discoverer: &fakeDiscoverer{err: errors.New("resolve example.invalid: NXDOMAIN")}}
	got := p.Scan(context.Background(), "example.invalid")
	if len(got) != 1 || got[0].Type != finding.TypeError || got[0].Title != "Port Scan Failed" {
		t.Fatalf("Scan() = %+v, want one Port Scan Failed finding", got)
	}
}

func TestWellKnownPorts(t *testing.T) {
	ports := WellKnownPorts()
	if len(ports) != 23 {
		t.Fatalf("table has %d ports, want 23", len(ports))
	}
	for i := 1; i < len(ports); i++ {
		if ports[i-1] >= ports[i] {
			t.Fatalf("WellKnownPorts not ascending: %v", ports)
		}
	}
	if ServiceLabel(5601) != "Kibana" {
		t.Errorf("ServiceLabel(5601) = %q", ServiceLabel(5601))
	}
}

func TestPortRemediation(t *testing.T) {
	if !strings.Contains(portRemediation(23), "SSH") {
		t.Errorf("telnet remediation = %q", portRemediation(23))
	}
	if !strings.Contains(portRemediation(6379), "database") {
		t.Errorf("redis remediation = %q", portRemediation(6379))
	}
	if got := portRemediation(4444); !strings.Contains(got, "port 4444") {
		t.Errorf("generic remediation = %q", got)
	}
}
