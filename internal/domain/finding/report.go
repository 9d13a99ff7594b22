package finding

import (
	"time"

	"github.com/google/uuid"
)

// ProbeState is the completion state of one probe inside a scan
type ProbeState string

const (
	ProbeStateOK     ProbeState = "ok"
	ProbeStateFailed ProbeState = "failed"
)

// ScanStatus summarises the whole scan.
type ScanStatus string

const (
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// ProbeStatus records how one probe finished.
type ProbeStatus struct {
	Name     string        `json:"name" yaml:"name"`
	State    ProbeState    `json:"state" yaml:"state"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Findings int           `json:"findings" yaml:"findings"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
}

// ScanReport is the aggregate result of running a probe set against one target.
type ScanReport struct {
	ScanID      string        `json:"scan_id" yaml:"scan_id"`
	Target      string        `json:"target" yaml:"target"`
	Status      ScanStatus    `json:"status" yaml:"status"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time     `json:"completed_at" yaml:"completed_at"`
	Duration    time.Duration `json:"duration_ns" yaml:"duration"`
	Probes      []ProbeStatus `json:"probes" yaml:"probes"`
	Findings    []Finding     `json:"findings" yaml:"findings"`
}

// NewScanReport starts a report for target with a fresh scan identifier.
// Targets are not validated here: probes report unusable targets as error findings.
func NewScanReport(target string, startedAt time.Time) *ScanReport {
	return &ScanReport{
		ScanID:    uuid.NewString(),
		Target:    target,
		StartedAt: startedAt,
		Probes:    []ProbeStatus{},
		Findings:  []Finding{},
	}
}

// Append adds one probe's outcome. Findings are kept in call order.
func (r *ScanReport) Append(status ProbeStatus, findings []Finding) {
	status.Findings = len(findings)
	r.Probes = append(r.Probes, status)
	r.Findings = append(r.Findings, findings...)
}

// Complete stamps the completion time and derives the overall status.
// A scan is failed only when it ran probes and every one of them failed.
func (r *ScanReport) Complete(completedAt time.Time) {
	r.CompletedAt = completedAt
	r.Duration = completedAt.Sub(r.StartedAt)
	r.Status = ScanStatusCompleted
	if len(r.Probes) == 0 {
		return
	}
	for _, p := range r.Probes {
		if p.State == ProbeStateOK {
			return
		}
	}
	r.Status = ScanStatusFailed
}

// SeverityCounts tallies the report's findings per severity.
func (r *ScanReport) SeverityCounts() map[Severity]int {
	return CountBySeverity(r.Findings)
}

// HasErrors reports whether any probe failed
func (r *ScanReport) HasErrors() bool {
	for _, p := range r.Probes {
		if p.State == ProbeStateFailed {
			return true
		}
	}
	return false
}
