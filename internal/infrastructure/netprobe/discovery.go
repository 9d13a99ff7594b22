package netprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-scan/internal/probe"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// httpNudgePorts get a HEAD request when they stay silent after connect.
var httpNudgePorts = map[int]bool{80: true, 3000: true, 5000: true, 8000: true, 8080: true, 9200: true, 5601: true}

// TCPDiscoverer implements probe.Discoverer with TCP connect scans and banner grabbing.
type TCPDiscoverer struct {
	Resolver      HostResolver
	Ports         []int
	Workers       int
	DialTimeout   time.Duration
	BannerTimeout time.Duration
	Logger        *zap.Logger
}

// portOutcome is what one worker learned about one port.
type portOutcome struct {
	open    *probe.OpenPort
	refused bool
}

// Discover implements probe.Discoverer. The host is up when any port accepted or
// actively refused a connection.
func (d *TCPDiscoverer) Discover(ctx context.Context, host string) (*probe.Discovery, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := d.Resolver
	if resolver == nil {
		resolver = NewResolver(nil, 0, logger)
	}

	addrs, err := resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainerrors.ErrDiscoveryFailed, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no addresses for %s", domainerrors.ErrDiscoveryFailed, host)
	}
	addr := addrs[0]

	ports := d.Ports
	if len(ports) == 0 {
		ports = probe.WellKnownPorts()
	}
	workers := d.Workers
	if workers <= 0 {
		workers = constants.DefaultPortWorkers
	}

	portChan := make(chan int, len(ports))
	resultChan := make(chan portOutcome, len(ports))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for port := range portChan {
				if ctx.Err() != nil {
					continue
				}
				resultChan <- d.checkPort(ctx, addr, port)
			}
		}()
	}

	for _, port := range ports {
		portChan <- port
	}
	close(portChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	discovery := &probe.Discovery{}
	for outcome := range resultChan {
		if outcome.refused {
			discovery.HostUp = true
		}
		if outcome.open != nil {
			discovery.HostUp = true
			discovery.OpenPorts = append(discovery.OpenPorts, *outcome.open)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domainerrors.ErrDiscoveryFailed, host, err)
	}

	sort.Slice(discovery.OpenPorts, func(i, j int) bool {
		return discovery.OpenPorts[i].Port < discovery.OpenPorts[j].Port
	})
	logger.Debug("discovery finished",
		zap.String("host", host),
		zap.String("addr", addr),
		zap.Int("ports_probed", len(ports)),
		zap.Int("open", len(discovery.OpenPorts)),
		zap.Bool("host_up", discovery.HostUp))
	return discovery, nil
}

func (d *TCPDiscoverer) checkPort(ctx context.Context, addr string, port int) portOutcome {
	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = constants.DefaultPortTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return portOutcome{refused: errors.Is(err, syscall.ECONNREFUSED)}
	}
	defer conn.Close()

	fallback := strings.ToLower(probe.ServiceLabel(port))
	if fallback == "" {
		fallback = "unknown"
	}
	banner := d.grabBanner(conn, port)
	info := parseBanner(banner, fallback)

	return portOutcome{open: &probe.OpenPort{
		Port:      port,
		Protocol:  "tcp",
		Service:   info.Service,
		Product:   info.Product,
		Version:   info.Version,
		ExtraInfo: info.ExtraInfo,
	}}
}

// grabBanner reads whatever the service sends first; silent HTTP-ish ports get a HEAD.
func (d *TCPDiscoverer) grabBanner(conn net.Conn, port int) []byte {
	wait := d.BannerTimeout
	if wait <= 0 {
		wait = constants.BannerReadTimeout
	}
	buf := make([]byte, constants.BannerReadLimitBytes)

	_ = conn.SetReadDeadline(time.Now().Add(wait))
	n, _ := conn.Read(buf)
	if n > 0 || !httpNudgePorts[port] {
		return buf[:n]
	}

	_ = conn.SetWriteDeadline(time.Now().Add(wait))
	if _, err := conn.Write([]byte("HEAD / HTTP/1.0\r\n\r\n")); err != nil {
		return nil
	}
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	n, _ = conn.Read(buf)
	return buf[:n]
}
