package netprobe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// HostResolver turns a hostname into addresses.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Resolver answers A/AAAA lookups against explicit nameservers with miekg/dns,
// or through the system resolver when none are configured.
type Resolver struct {
	Nameservers []string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewResolver normalises nameserver addresses to host:port.
func NewResolver(nameservers []string, timeout time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	normalized := make([]string, 0, len(nameservers))
	for _, ns := range nameservers {
		if ns == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(ns); err != nil {
			ns = net.JoinHostPort(ns, "53")
		}
		normalized = append(normalized, ns)
	}
	return &Resolver{Nameservers: normalized, Timeout: timeout, Logger: logger}
}

// LookupHost implements HostResolver. IP literals are returned unchanged.
func (r *Resolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}

	if len(r.Nameservers) == 0 {
		addrs, err := net.DefaultResolver.LookupHost(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domainerrors.ErrResolveFailed, host, err)
		}
		return addrs, nil
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultOpTimeout
	}
	client := &dns.Client{Timeout: timeout}

	var lastErr error
	for _, ns := range r.Nameservers {
		addrs, err := r.query(ctx, client, ns, host)
		if err == nil {
			return addrs, nil
		}
		r.logger().Debug("nameserver lookup failed",
			zap.String("nameserver", ns),
			zap.String("host", host),
			zap.Error(err))
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s: %w", domainerrors.ErrResolveFailed, host, lastErr)
}

func (r *Resolver) query(ctx context.Context, client *dns.Client, nameserver, host string) ([]string, error) {
	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(host), qtype)
		msg.RecursionDesired = true

		in, _, err := client.ExchangeContext(ctx, msg, nameserver)
		if err != nil {
			return nil, err
		}
		switch in.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return nil, fmt.Errorf("%s does not exist (NXDOMAIN)", host)
		default:
			return nil, fmt.Errorf("%s answered %s", nameserver, dns.RcodeToString[in.Rcode])
		}

		for _, rr := range in.Answer {
			switch record := rr.(type) {
			case *dns.A:
				addrs = append(addrs, record.A.String())
			case *dns.AAAA:
				addrs = append(addrs, record.AAAA.String())
			}
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no address records for %s", host)
	}
	return addrs, nil
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
