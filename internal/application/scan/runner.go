package scan

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
)

// Scanner produces one report per target. *Orchestrator satisfies it.
type Scanner interface {
	RunSubset(ctx context.Context, target string, names []string) *finding.ScanReport
	RunAll(ctx context.Context, target string) *finding.ScanReport
}

// ReportFunc is called as each target's report becomes available.
type ReportFunc func(index int, report *finding.ScanReport)

// Runner scans several targets with bounded concurrency and a global rate limit.
type Runner struct {
	Concurrency int      // Maximum number of targets scanned at once
	RateLimit   int      // Targets started per second; 0 disables the limit
	Probes      []string // Registry keys to run; empty runs every probe
}

// Run scans targets and returns their reports in input order.
func (r *Runner) Run(ctx context.Context, targets []string, scanner Scanner, onReport ReportFunc) []*finding.ScanReport {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	reports := make([]*finding.ScanReport, len(targets))

	for i, target := range targets {
		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			// A cancelled wait still runs the scan; the orchestrator reports the cancellation.
			_ = limiter.Wait(ctx)

			var report *finding.ScanReport
			if len(r.Probes) == 0 {
				report = scanner.RunAll(ctx, t)
			} else {
				report = scanner.RunSubset(ctx, t, r.Probes)
			}

			mu.Lock()
			reports[i] = report
			if onReport != nil {
				onReport(i, report)
			}
			mu.Unlock()
		}(i, target)
	}

	wg.Wait()
	return reports
}
