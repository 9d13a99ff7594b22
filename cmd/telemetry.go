package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
	consts "github.com/khanhnv2901/seca-scan/internal/shared/constants"
)

type telemetryRecord struct {
	Timestamp          time.Time      `json:"timestamp"`
	TargetCount        int            `json:"target_count"`
	CompletedCount     int            `json:"completed_count"`
	FailedCount        int            `json:"failed_count"`
	FailedProbes       int            `json:"failed_probes"`
	FindingCount       int            `json:"finding_count"`
	Severities         map[string]int `json:"severities"`
	DurationSeconds    float64        `json:"duration_seconds"`
	AvgDurationPerScan float64        `json:"avg_duration_per_scan"`
}

func buildTelemetryRecord(reports []*finding.ScanReport, duration time.Duration) telemetryRecord {
	record := telemetryRecord{
		Timestamp:       time.Now().UTC(),
		TargetCount:     len(reports),
		Severities:      make(map[string]int, len(finding.AllSeverities())),
		DurationSeconds: duration.Seconds(),
	}
	for _, sev := range finding.AllSeverities() {
		record.Severities[string(sev)] = 0
	}

	for _, r := range reports {
		if r.Status == finding.ScanStatusCompleted {
			record.CompletedCount++
		} else {
			record.FailedCount++
		}
		for _, p := range r.Probes {
			if p.State == finding.ProbeStateFailed {
				record.FailedProbes++
			}
		}
		record.FindingCount += len(r.Findings)
		for sev, n := range r.SeverityCounts() {
			record.Severities[string(sev)] += n
		}
	}

	if len(reports) > 0 {
		record.AvgDurationPerScan = duration.Seconds() / float64(len(reports))
	}
	return record
}

// recordTelemetry appends one run summary line to <results_dir>/telemetry.jsonl.
func recordTelemetry(appCtx *AppContext, reports []*finding.ScanReport, duration time.Duration) error {
	data, err := json.Marshal(buildTelemetryRecord(reports, duration))
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	if err := os.MkdirAll(appCtx.ResultsDir, consts.DefaultDirPerm); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	telemetryPath := filepath.Join(appCtx.ResultsDir, "telemetry.jsonl")
	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}
