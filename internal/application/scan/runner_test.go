package scan

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
)

type countingScanner struct {
	active  atomic.Int32
	peak    atomic.Int32
	mu      sync.Mutex
	subsets [][]string
}

func (s *countingScanner) scan(target string) *finding.ScanReport {
	n := s.active.Add(1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	s.active.Add(-1)
	r := finding.NewScanReport(target, time.Now())
	r.Complete(time.Now())
	return r
}

func (s *countingScanner) RunAll(_ context.Context, target string) *finding.ScanReport {
	return s.scan(target)
}

func (s *countingScanner) RunSubset(_ context.Context, target string, names []string) *finding.ScanReport {
	s.mu.Lock()
	s.subsets = append(s.subsets, names)
	s.mu.Unlock()
	return s.scan(target)
}

func TestRunnerPreservesInputOrder(t *testing.T) {
	scanner := &countingScanner{}
	r := &Runner{Concurrency: 3}
	targets := []string{"a.example", "b.example", "c.example", "d.example", "e.example"}

	var seen atomic.Int32
	reports := r.Run(context.Background(), targets, scanner, func(i int, report *finding.ScanReport) {
		seen.Add(1)
		assert.Equal(t, targets[i], report.Target)
	})

	require.Len(t, reports, len(targets))
	for i, report := range reports {
		assert.Equal(t, targets[i], report.Target)
	}
	assert.EqualValues(t, len(targets), seen.Load())
	assert.LessOrEqual(t, scanner.peak.Load(), int32(3))
}

func TestRunnerDefaultsToSequential(t *testing.T) {
	scanner := &countingScanner{}
	r := &Runner{}

	reports := r.Run(context.Background(), []string{"a", "b", "c"}, scanner, nil)

	assert.Len(t, reports, 3)
	assert.EqualValues(t, 1, scanner.peak.Load())
}

func TestRunnerUsesSubsetWhenProbesGiven(t *testing.T) {
	scanner := &countingScanner{}
	r := &Runner{Concurrency: 2, Probes: []string{"tls"}}

	r.Run(context.Background(), []string{"a", "b"}, scanner, nil)

	require.Len(t, scanner.subsets, 2)
	assert.Equal(t, []string{"tls"}, scanner.subsets[0])
}

func TestRunnerRateLimit(t *testing.T) {
	scanner := &countingScanner{}
	r := &Runner{Concurrency: 4, RateLimit: 10}

	start := time.Now()
	r.Run(context.Background(), []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}, scanner, nil)

	// Burst of 10, the remaining two wait at least one token interval.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
