package scan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
	"github.com/khanhnv2901/seca-scan/internal/probe"
	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// Registration binds a probe to the key used to select it.
type Registration struct {
	Key         string
	Description string
	Probe       probe.Probe
}

// Location is where failures of the registered probe are reported. Probes that do
// not implement probe.Locator fall back to the target.
func (r Registration) Location(target string) string {
	if l, ok := r.Probe.(probe.Locator); ok {
		if loc := l.Location(); loc != "" {
			return loc
		}
	}
	return target
}

// Observer is notified as probes and scans finish. Implementations must be safe
// for concurrent use when the Runner scans several targets at once.
type Observer interface {
	ProbeFinished(target string, status finding.ProbeStatus, findings []finding.Finding)
	ScanFinished(report *finding.ScanReport)
}

// keyAliases maps alternative probe names onto registry keys.
var keyAliases = map[string]string{
	"ssl":    "tls",
	"header": "headers",
	"port":   "ports",
}

// Orchestrator runs registered probes concurrently against one target and
// aggregates their findings in registration order.
type Orchestrator struct {
	registry []Registration
	deadline time.Duration
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDeadline bounds each scan; probes still running when it expires are abandoned.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) { o.deadline = d }
}

// WithObserver registers an observer for probe and scan completion.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an orchestrator with an empty registry.
func NewOrchestrator(logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register appends a probe to the registry. Keys are case-insensitive and unique.
func (o *Orchestrator) Register(key, description string, p probe.Probe) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || p == nil {
		return fmt.Errorf("register probe: key and probe are required")
	}
	for _, reg := range o.registry {
		if reg.Key == key {
			return fmt.Errorf("register probe: key %q already registered", key)
		}
	}
	o.registry = append(o.registry, Registration{Key: key, Description: description, Probe: p})
	return nil
}

// Registrations returns the registry in registration order.
func (o *Orchestrator) Registrations() []Registration {
	out := make([]Registration, len(o.registry))
	copy(out, o.registry)
	return out
}

// RunAll runs every registered probe against target.
func (o *Orchestrator) RunAll(ctx context.Context, target string) *finding.ScanReport {
	return o.run(ctx, target, o.Registrations())
}

// RunSubset runs the registered probes named in names. Unknown names are ignored.
func (o *Orchestrator) RunSubset(ctx context.Context, target string, names []string) *finding.ScanReport {
	return o.run(ctx, target, o.Select(names))
}

// Select resolves names against the registry, keeping registration order.
func (o *Orchestrator) Select(names []string) []Registration {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if alias, ok := keyAliases[key]; ok {
			key = alias
		}
		wanted[key] = true
	}
	var selected []Registration
	for _, reg := range o.registry {
		if wanted[reg.Key] {
			selected = append(selected, reg)
		}
	}
	return selected
}

// probeOutcome carries one finished probe back to the collector.
type probeOutcome struct {
	index    int
	status   finding.ProbeStatus
	findings []finding.Finding
}

func (o *Orchestrator) run(ctx context.Context, target string, selected []Registration) *finding.ScanReport {
	report := finding.NewScanReport(target, o.now())
	logger := o.logger.With(zap.String("target", target), zap.String("scan_id", report.ScanID))

	if o.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.deadline)
		defer cancel()
	}

	logger.Debug("scan started", zap.Int("probes", len(selected)))

	done := make(chan probeOutcome, len(selected))
	for i, reg := range selected {
		go func(i int, reg Registration) {
			status, findings := o.execute(ctx, target, reg)
			done <- probeOutcome{index: i, status: status, findings: findings}
		}(i, reg)
	}

	outcomes := make([]*probeOutcome, len(selected))
	remaining := len(selected)
	for remaining > 0 {
		select {
		case out := <-done:
			outcomes[out.index] = &out
			remaining--
		case <-ctx.Done():
			remaining = drain(done, outcomes, remaining)
			if remaining > 0 {
				logger.Warn("scan interrupted, abandoning probes",
					zap.Int("abandoned", remaining),
					zap.Error(ctx.Err()))
			}
			remaining = 0
		}
	}

	for i, reg := range selected {
		out := outcomes[i]
		if out == nil {
			err := fmt.Errorf("%w: %w", domainerrors.ErrProbeAbandoned, context.Cause(ctx))
			findings := []finding.Finding{o.failure(reg, target, err)}
			out = &probeOutcome{index: i, status: statusFor(reg.Key, findings, o.now().Sub(report.StartedAt)), findings: findings}
		}
		report.Append(out.status, out.findings)
		if o.observer != nil {
			o.observer.ProbeFinished(target, out.status, out.findings)
		}
	}

	report.Complete(o.now())
	logger.Info("scan finished",
		zap.String("status", string(report.Status)),
		zap.Int("findings", len(report.Findings)),
		zap.Duration("duration", report.Duration))
	if o.observer != nil {
		o.observer.ScanFinished(report)
	}
	return report
}

// drain collects outcomes that already arrived without waiting for the rest.
func drain(done <-chan probeOutcome, outcomes []*probeOutcome, remaining int) int {
	for remaining > 0 {
		select {
		case out := <-done:
			outcomes[out.index] = &out
			remaining--
		default:
			return remaining
		}
	}
	return remaining
}

// execute runs one probe, converting a panic into that probe's failure finding.
func (o *Orchestrator) execute(ctx context.Context, target string, reg Registration) (status finding.ProbeStatus, findings []finding.Finding) {
	start := time.Now()
	logger := o.logger.With(zap.String("target", target), zap.String("probe", reg.Key))
	logger.Debug("probe started")

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", domainerrors.ErrProbePanic, r)
			logger.Warn("probe panicked", zap.Error(err))
			findings = []finding.Finding{o.failure(reg, target, err)}
		}
		status = statusFor(reg.Key, findings, time.Since(start))
		if status.State == finding.ProbeStateFailed {
			logger.Warn("probe failed", zap.String("error", status.Error), zap.Duration("duration", status.Duration))
			return
		}
		logger.Debug("probe finished", zap.Int("findings", len(findings)), zap.Duration("duration", status.Duration))
	}()

	findings = reg.Probe.Scan(ctx, target)
	return status, findings
}

// failure builds the "<ProbeName> Failed" finding for a probe the orchestrator had to stop.
func (o *Orchestrator) failure(reg Registration, target string, err error) finding.Finding {
	title := fmt.Sprintf("%s Failed", reg.Probe.Name())
	f := finding.Error(finding.NewID(reg.Key, "probe-failed", target), title, reg.Location(target), err)
	f.Evidence = f.Evidence.With("target", target)
	return f
}

// statusFor marks a probe failed when it reported an error finding.
func statusFor(key string, findings []finding.Finding, elapsed time.Duration) finding.ProbeStatus {
	status := finding.ProbeStatus{Name: key, State: finding.ProbeStateOK, Duration: elapsed}
	for _, f := range findings {
		if f.Type == finding.TypeError {
			status.State = finding.ProbeStateFailed
			status.Error = f.Evidence.String("error")
			break
		}
	}
	return status
}
