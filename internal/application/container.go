package application

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-scan/internal/application/scan"
	"github.com/khanhnv2901/seca-scan/internal/infrastructure/netprobe"
	"github.com/khanhnv2901/seca-scan/internal/probe"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
)

// Settings carries the scan configuration the container wires into collaborators and probes.
type Settings struct {
	OpTimeout     time.Duration // per network operation
	MaxDuration   time.Duration // whole scan; 0 disables the deadline
	UserAgent     string
	InsecureFetch bool
	TLSPort       int
	Ports         []int
	PortWorkers   int
	PortTimeout   time.Duration
	Nameservers   []string
	BlockingSlots int // concurrent blocking collaborator calls; 0 is unbounded
}

// DefaultSettings returns the built-in scan configuration.
func DefaultSettings() Settings {
	return Settings{
		OpTimeout:     constants.DefaultOpTimeout,
		MaxDuration:   constants.DefaultScanDeadline,
		UserAgent:     constants.DefaultUserAgent,
		InsecureFetch: true,
		TLSPort:       constants.DefaultTLSPort,
		Ports:         probe.WellKnownPorts(),
		PortWorkers:   constants.DefaultPortWorkers,
		PortTimeout:   constants.DefaultPortTimeout,
		BlockingSlots: constants.DefaultBlockingSlots,
	}
}

// Container holds the wired collaborators, probes and orchestrator.
// This is a simple dependency injection container
type Container struct {
	// Collaborators
	Fetcher    *netprobe.HTTPFetcher
	Dialer     *netprobe.TLSDialer
	Discoverer *netprobe.TCPDiscoverer

	// Probes
	Headers *probe.HeaderPolicyProbe
	TLS     *probe.TLSPolicyProbe
	Ports   *probe.PortRiskProbe

	// Services
	Orchestrator *scan.Orchestrator
}

// NewContainer wires the real collaborators into the three probes and registers
// them with a new orchestrator under the keys headers, tls and ports.
func NewContainer(settings Settings, logger *zap.Logger, opts ...scan.Option) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.OpTimeout <= 0 {
		settings.OpTimeout = constants.DefaultOpTimeout
	}
	if len(settings.Ports) == 0 {
		settings.Ports = probe.WellKnownPorts()
	}
	if settings.PortWorkers <= 0 {
		settings.PortWorkers = constants.DefaultPortWorkers
	}
	if settings.PortTimeout <= 0 {
		settings.PortTimeout = constants.DefaultPortTimeout
	}

	pool := probe.NewPool(settings.BlockingSlots)

	fetcher := netprobe.NewHTTPFetcher(settings.UserAgent, constants.MaxRedirects, settings.InsecureFetch, logger.Named("fetch"))
	dialer := &netprobe.TLSDialer{Timeout: settings.OpTimeout, Logger: logger.Named("tls")}
	discoverer := &netprobe.TCPDiscoverer{
		Resolver:      netprobe.NewResolver(settings.Nameservers, settings.OpTimeout, logger.Named("dns")),
		Ports:         settings.Ports,
		Workers:       settings.PortWorkers,
		DialTimeout:   settings.PortTimeout,
		BannerTimeout: constants.BannerReadTimeout,
		Logger:        logger.Named("discovery"),
	}

	headers := &probe.HeaderPolicyProbe{Fetcher: fetcher, Timeout: settings.OpTimeout, Pool: pool}
	tlsProbe := &probe.TLSPolicyProbe{Connector: dialer, Port: settings.TLSPort, Timeout: settings.OpTimeout, Pool: pool}
	ports := &probe.PortRiskProbe{Discoverer: discoverer, Timeout: discoveryBudget(settings), Pool: pool}

	if settings.MaxDuration > 0 {
		opts = append([]scan.Option{scan.WithDeadline(settings.MaxDuration)}, opts...)
	}
	orchestrator := scan.NewOrchestrator(logger.Named("scan"), opts...)

	registrations := []scan.Registration{
		{Key: "headers", Description: "HTTP security header policy and header information disclosure", Probe: headers},
		{Key: "tls", Description: "TLS protocol versions, certificate lifecycle and cipher strength", Probe: tlsProbe},
		{Key: "ports", Description: "Exposed network services, version disclosure and risky port groups", Probe: ports},
	}
	for _, reg := range registrations {
		if err := orchestrator.Register(reg.Key, reg.Description, reg.Probe); err != nil {
			return nil, fmt.Errorf("failed to register %s probe: %w", reg.Key, err)
		}
	}

	return &Container{
		Fetcher:      fetcher,
		Dialer:       dialer,
		Discoverer:   discoverer,
		Headers:      headers,
		TLS:          tlsProbe,
		Ports:        ports,
		Orchestrator: orchestrator,
	}, nil
}

// discoveryBudget bounds one discovery run: every batch of workers may spend a
// dial timeout plus a banner read, and name resolution gets one op timeout.
func discoveryBudget(s Settings) time.Duration {
	batches := (len(s.Ports) + s.PortWorkers - 1) / s.PortWorkers
	budget := s.OpTimeout + time.Duration(batches)*(s.PortTimeout+constants.BannerReadTimeout)
	if budget < s.OpTimeout {
		return s.OpTimeout
	}
	return budget
}
