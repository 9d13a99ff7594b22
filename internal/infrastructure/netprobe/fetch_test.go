package netprobe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

func TestHTTPFetcherFollowsRedirects(t *testing.T) {
	var gotUA string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/home", http.StatusFound)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Server", "test-server/1.0")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher("SecurityScanner/1.0", 5, false, zaptest.NewLogger(t))
	res, err := f.Fetch(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if res.URL != srv.URL+"/home" {
		t.Errorf("URL = %q, want %q", res.URL, srv.URL+"/home")
	}
	if res.Header.Get("x-frame-options") != "DENY" {
		t.Errorf("header lookup is not case-insensitive: %v", res.Header)
	}
	if gotUA != "SecurityScanner/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestHTTPFetcherRedirectLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher("", 3, false, nil)
	_, err := f.Fetch(context.Background(), srv.URL+"/")
	if !errors.Is(err, domainerrors.ErrFetchFailed) {
		t.Fatalf("Fetch() error = %v, want ErrFetchFailed", err)
	}
}

func TestHTTPFetcherInsecureTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000")
	}))
	defer srv.Close()

	strict := NewHTTPFetcher("", 0, false, nil)
	if _, err := strict.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected certificate verification failure with a verifying client")
	}

	insecure := NewHTTPFetcher("", 0, true, nil)
	res, err := insecure.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Header.Get("Strict-Transport-Security") == "" {
		t.Errorf("HSTS header missing from result")
	}
}

func TestHTTPFetcherHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPFetcher("", 0, false, nil).Fetch(ctx, srv.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Fetch() error = %v, want deadline exceeded", err)
	}
}
