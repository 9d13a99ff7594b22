package netprobe

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// bannerServer accepts connections on loopback and greets each with banner.
func bannerServer(t *testing.T, banner string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			if banner != "" {
				_, _ = conn.Write([]byte(banner))
			}
			time.Sleep(50 * time.Millisecond)
			conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

type staticResolver struct {
	addrs []string
	err   error
}

func (r staticResolver) LookupHost(context.Context, string) ([]string, error) {
	return r.addrs, r.err
}

func TestTCPDiscovererFindsOpenPorts(t *testing.T) {
	sshPort := bannerServer(t, "SSH-2.0-OpenSSH_9.6\r\n")
	silentPort := bannerServer(t, "")
	closed := closedPort(t)

	d := &TCPDiscoverer{
		Resolver:      staticResolver{addrs: []string{"127.0.0.1"}},
		Ports:         []int{closed, silentPort, sshPort},
		Workers:       2,
		DialTimeout:   time.Second,
		BannerTimeout: 200 * time.Millisecond,
		Logger:        zaptest.NewLogger(t),
	}

	got, err := d.Discover(context.Background(), "app.internal")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if !got.HostUp {
		t.Fatalf("HostUp = false, want true")
	}
	if len(got.OpenPorts) != 2 {
		t.Fatalf("open ports = %+v, want 2", got.OpenPorts)
	}
	for i := 1; i < len(got.OpenPorts); i++ {
		if got.OpenPorts[i-1].Port > got.OpenPorts[i].Port {
			t.Errorf("open ports not sorted: %+v", got.OpenPorts)
		}
	}

	var ssh, silent bool
	for _, p := range got.OpenPorts {
		switch p.Port {
		case sshPort:
			ssh = true
			if p.Service != "ssh" || p.Product != "OpenSSH" || p.Version != "9.6" {
				t.Errorf("ssh port = %+v", p)
			}
		case silentPort:
			silent = true
			if p.Protocol != "tcp" || p.Service == "" {
				t.Errorf("silent port = %+v", p)
			}
		}
	}
	if !ssh || !silent {
		t.Errorf("missing ports: ssh=%v silent=%v", ssh, silent)
	}
}

func TestTCPDiscovererRefusedMeansUp(t *testing.T) {
	d := &TCPDiscoverer{
		Resolver:    staticResolver{addrs: []string{"127.0.0.1"}},
		Ports:       []int{closedPort(t)},
		DialTimeout: time.Second,
	}
	got, err := d.Discover(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if !got.HostUp || len(got.OpenPorts) != 0 {
		t.Errorf("Discover() = %+v, want host up with no open ports", got)
	}
}

func TestTCPDiscovererResolveFailure(t *testing.T) {
	d := &TCPDiscoverer{Resolver: staticResolver{err: errors.New("NXDOMAIN")}}
	_, err := d.Discover(context.Background(), "missing.example")
	if !errors.Is(err, domainerrors.ErrDiscoveryFailed) {
		t.Fatalf("error = %v, want ErrDiscoveryFailed", err)
	}
}

func TestTCPDiscovererCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := &TCPDiscoverer{
		Resolver: staticResolver{addrs: []string{"127.0.0.1"}},
		Ports:    []int{closedPort(t)},
	}
	if _, err := d.Discover(ctx, "127.0.0.1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
