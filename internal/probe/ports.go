package probe

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
)

const (
	portsKey        = "ports"
	portsLocation   = "Network Ports"
	portScanFailed  = "Port Scan Failed"
	networkLocation = "Network"
)

// portProfile is one row of the well-known port table.
type portProfile struct {
	Service     string
	Severity    finding.Severity
	Description string
}

var wellKnownPorts = map[int]portProfile{
	21:    {"FTP", finding.SeverityMedium, "FTP service - consider using SFTP"},
	22:    {"SSH", finding.SeverityMedium, "SSH - secure shell access"},
	23:    {"Telnet", finding.SeverityHigh, "Telnet - unencrypted remote access"},
	25:    {"SMTP", finding.SeverityLow, "SMTP mail server"},
	53:    {"DNS", finding.SeverityLow, "DNS service"},
	80:    {"HTTP", finding.SeverityMedium, "HTTP - should redirect to HTTPS"},
	110:   {"POP3", finding.SeverityMedium, "POP3 - unencrypted email"},
	143:   {"IMAP", finding.SeverityMedium, "IMAP - unencrypted email"},
	443:   {"HTTPS", finding.SeverityInfo, "HTTPS - encrypted web traffic"},
	993:   {"IMAPS", finding.SeverityInfo, "IMAPS - encrypted email"},
	995:   {"POP3S", finding.SeverityInfo, "POP3S - encrypted email"},
	3000:  {"Node.js", finding.SeverityMedium, "Node.js development server"},
	3306:  {"MySQL", finding.SeverityHigh, "MySQL database"},
	3389:  {"RDP", finding.SeverityHigh, "RDP - remote desktop access"},
	5000:  {"Flask", finding.SeverityMedium, "Flask development server"},
	5432:  {"PostgreSQL", finding.SeverityHigh, "PostgreSQL database"},
	5601:  {"Kibana", finding.SeverityHigh, "Kibana dashboard"},
	6379:  {"Redis", finding.SeverityHigh, "Redis database"},
	8000:  {"Django", finding.SeverityMedium, "Django development server"},
	8080:  {"HTTP-Alt", finding.SeverityMedium, "Alternative HTTP port"},
	8443:  {"HTTPS-Alt", finding.SeverityInfo, "Alternative HTTPS port"},
	9200:  {"Elasticsearch", finding.SeverityHigh, "Elasticsearch database"},
	27017: {"MongoDB", finding.SeverityHigh, "MongoDB database"},
}

var databasePorts = map[int]bool{5432: true, 3306: true, 6379: true, 27017: true, 9200: true, 5601: true}

var developmentPorts = map[int]bool{3000: true, 5000: true, 8000: true, 8080: true}

var encryptedTransportMarkers = []string{"ssl", "tls", "encrypted"}

// WellKnownPorts returns the ports of the static risk table in ascending order.
func WellKnownPorts() []int {
	ports := make([]int, 0, len(wellKnownPorts))
	for port := range wellKnownPorts {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}

// ServiceLabel returns the table label for port, or "" when the port is not listed.
func ServiceLabel(port int) string {
	return wellKnownPorts[port].Service
}

// PortRiskProbe classifies the services a discovery collaborator finds on the host.
type PortRiskProbe struct {
	Discoverer Discoverer
	Timeout    time.Duration
	Pool       *Pool
}

// Name implements Probe.
func (p *PortRiskProbe) Name() string {
	return "PortRiskProbe"
}

func (p *PortRiskProbe) Location() string {
	return portsLocation
}

// Scan implements Probe.
func (p *PortRiskProbe) Scan(ctx context.Context, target string) (findings []finding.Finding) {
	defer recoverScan(&findings, portsKey, portScanFailed, portsLocation)

	host := ExtractHost(target)
	if host == "" {
		return []finding.Finding{portFailure(target, fmt.Errorf("cannot extract host from %q", target))}
	}
	if p.Discoverer == nil {
		return []finding.Finding{portFailure(host, fmt.Errorf("no discoverer configured"))}
	}

	opCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(p.Timeout))
	defer cancel()

	discovery, err := Blocking(opCtx, p.Pool, func(ctx context.Context) (*Discovery, error) {
		return p.Discoverer.Discover(ctx, host)
	})
	if err != nil {
		return []finding.Finding{portFailure(host, err)}
	}
	if discovery == nil {
		discovery = &Discovery{}
	}
	return EvaluatePorts(host, *discovery)
}

func portFailure(host string, err error) finding.Finding {
	f := finding.Error(finding.NewID(portsKey, "scan-failed"), portScanFailed, portsLocation, err)
	f.Evidence = f.Evidence.With("host", host)
	return f
}

// EvaluatePorts classifies each open port, then applies the cross-port checks once.
// Ports are evaluated in ascending order; duplicates are reported once.
func EvaluatePorts(host string, discovery Discovery) []finding.Finding {
	if !discovery.HostUp {
		return []finding.Finding{{
			ID:          finding.NewID(portsKey, "host-down", host),
			Type:        finding.TypeInformation,
			Severity:    finding.SeverityInfo,
			Title:       "Host Unreachable",
			Description: fmt.Sprintf("Host %s did not respond on any probed port", host),
			Location:    networkLocation,
			Evidence:    finding.NewEvidence().With("host", host),
		}}
	}

	ports := normalizePorts(discovery.OpenPorts)
	var findings []finding.Finding
	open := make(map[int]bool, len(ports))

	for _, port := range ports {
		open[port.Port] = true
		findings = append(findings, classifyPort(port))
		if f, ok := versionDisclosure(port); ok {
			findings = append(findings, f)
		}
	}

	if open[80] && !open[443] {
		findings = append(findings, finding.Finding{
			ID:            finding.NewID(portsKey, "http-without-https"),
			Type:          finding.TypeVulnerability,
			Severity:      finding.SeverityHigh,
			Title:         "HTTP Without HTTPS",
			Description:   "HTTP port 80 is open but HTTPS port 443 is not available",
			Remediation:   "Enable HTTPS and redirect HTTP traffic to HTTPS",
			OWASPCategory: finding.OWASPCryptographicFailures,
			Location:      portsLocation,
			Evidence:      finding.NewEvidence().With("open_ports", openPortList(ports)),
		})
	}

	if exposed := filterPorts(ports, databasePorts); len(exposed) > 0 {
		findings = append(findings, finding.Finding{
			ID:            finding.NewID(portsKey, "database-exposure", joinPorts(exposed)),
			Type:          finding.TypeVulnerability,
			Severity:      finding.SeverityCritical,
			Title:         "Database Ports Exposed",
			Description:   fmt.Sprintf("Database ports exposed to the network: %s", joinPorts(exposed)),
			Remediation:   "Move databases to private networks and use VPN or bastion hosts for access",
			OWASPCategory: finding.OWASPSecurityMisconfiguration,
			Location:      portsLocation,
			Evidence:      finding.NewEvidence().With("exposed_ports", exposed),
		})
	}

	if exposed := filterPorts(ports, developmentPorts); len(exposed) > 0 {
		findings = append(findings, finding.Finding{
			ID:            finding.NewID(portsKey, "development-servers-exposed", joinPorts(exposed)),
			Type:          finding.TypeVulnerability,
			Severity:      finding.SeverityMedium,
			Title:         "Development Servers Exposed",
			Description:   fmt.Sprintf("Development server ports exposed: %s", joinPorts(exposed)),
			Remediation:   "Remove development servers from production environment",
			OWASPCategory: finding.OWASPSecurityMisconfiguration,
			Location:      portsLocation,
			Evidence:      finding.NewEvidence().With("exposed_ports", exposed),
		})
	}

	return findings
}

func classifyPort(port OpenPort) finding.Finding {
	location := fmt.Sprintf("Port %d", port.Port)
	evidence := finding.NewEvidence().
		With("port", port.Port).
		With("protocol", port.Protocol).
		With("service", port.Service).
		With("product", port.Product).
		With("version", port.Version).
		With("extra_info", port.ExtraInfo).
		With("state", "open")

	profile, listed := wellKnownPorts[port.Port]
	if !listed {
		return finding.Finding{
			ID:            finding.NewID(portsKey, "open-port", strconv.Itoa(port.Port), port.Protocol),
			Type:          finding.TypeInformation,
			Severity:      finding.SeverityInfo,
			Title:         fmt.Sprintf("Open Port Found: %d/%s", port.Port, port.Service),
			Description:   strings.TrimSpace(fmt.Sprintf("Port %d is open. Service: %s %s %s", port.Port, port.Service, port.Product, port.Version)),
			Remediation:   portRemediation(port.Port),
			OWASPCategory: finding.OWASPSecurityMisconfiguration,
			Location:      location,
			Evidence:      evidence,
		}
	}

	severity := profile.Severity
	if databasePorts[port.Port] && !hasEncryptedTransport(port.ExtraInfo) {
		severity = finding.SeverityHigh
	}
	kind := finding.TypeVulnerability
	if severity == finding.SeverityInfo {
		kind = finding.TypeInformation
	}

	return finding.Finding{
		ID:            finding.NewID(portsKey, "risky-port", strconv.Itoa(port.Port), port.Protocol, string(severity)),
		Type:          kind,
		Severity:      severity,
		Title:         fmt.Sprintf("Open Port: %d/%s", port.Port, port.Service),
		Description:   strings.TrimSpace(fmt.Sprintf("%s. Service: %s %s %s", profile.Description, port.Service, port.Product, port.Version)),
		Remediation:   portRemediation(port.Port),
		OWASPCategory: finding.OWASPSecurityMisconfiguration,
		Location:      location,
		Evidence:      evidence,
	}
}

func versionDisclosure(port OpenPort) (finding.Finding, bool) {
	version := strings.TrimSpace(port.Version)
	if version == "" || strings.EqualFold(version, "unknown") {
		return finding.Finding{}, false
	}
	return finding.Finding{
		ID:            finding.NewID(portsKey, "version-disclosure", strconv.Itoa(port.Port), port.Product, version),
		Type:          finding.TypeInformationDisclosure,
		Severity:      finding.SeverityLow,
		Title:         fmt.Sprintf("Version Disclosure on Port %d", port.Port),
		Description:   strings.TrimSpace(fmt.Sprintf("Service version disclosed: %s %s %s", port.Service, port.Product, version)),
		Remediation:   "Disable or obfuscate version information in service banners",
		OWASPCategory: finding.OWASPSecurityMisconfiguration,
		Location:      fmt.Sprintf("Port %d", port.Port),
		Evidence: finding.NewEvidence().
			With("port", port.Port).
			With("service", port.Service).
			With("product", port.Product).
			With("version", version),
	}, true
}

func portRemediation(port int) string {
	switch port {
	case 21, 23:
		return "Disable unencrypted protocols and use encrypted alternatives (SFTP, SSH)"
	case 25, 110, 143:
		return "Ensure email services use encryption (SMTPS, IMAPS, POP3S)"
	case 80:
		return "Redirect HTTP to HTTPS and implement HSTS"
	case 5432, 3306, 6379, 27017, 9200:
		return "Ensure database is not exposed to the internet, use VPN or private networks"
	case 3389:
		return "Secure RDP with strong authentication, consider VPN access only"
	case 3000, 5000, 8000:
		return "Development servers should not be exposed in production"
	default:
		return fmt.Sprintf("Review necessity of exposing port %d and implement proper security controls", port)
	}
}

func hasEncryptedTransport(extraInfo string) bool {
	lower := strings.ToLower(extraInfo)
	for _, marker := range encryptedTransportMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// normalizePorts sorts by port and protocol, fills missing labels and drops duplicates.
func normalizePorts(in []OpenPort) []OpenPort {
	out := make([]OpenPort, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		if p.Port <= 0 || p.Port > 65535 {
			continue
		}
		if p.Protocol == "" {
			p.Protocol = "tcp"
		}
		if p.Service == "" {
			p.Service = strings.ToLower(ServiceLabel(p.Port))
			if p.Service == "" {
				p.Service = "unknown"
			}
		}
		key := p.Protocol + "/" + strconv.Itoa(p.Port)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Port != out[j].Port {
			return out[i].Port < out[j].Port
		}
		return out[i].Protocol < out[j].Protocol
	})
	return out
}

func filterPorts(ports []OpenPort, set map[int]bool) []int {
	var out []int
	for _, p := range ports {
		if set[p.Port] && (len(out) == 0 || out[len(out)-1] != p.Port) {
			out = append(out, p.Port)
		}
	}
	return out
}

func openPortList(ports []OpenPort) []int {
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if len(out) == 0 || out[len(out)-1] != p.Port {
			out = append(out, p.Port)
		}
	}
	return out
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}
