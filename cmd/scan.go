package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-scan/internal/application"
	"github.com/khanhnv2901/seca-scan/internal/application/scan"
	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
	"github.com/khanhnv2901/seca-scan/internal/metrics"
	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

var scanCmd = &cobra.Command{
	Use:   "scan <target> [target...]",
	Short: "Scan targets for header, TLS and exposed-service misconfigurations",
	Long: `Run the header, TLS and port probes against one or more targets.

Targets may be URLs (https://example.com/path), host:port pairs or bare hosts;
bare hosts are scanned over https. Use --only to run a subset of probes
(headers, tls, ports).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, targets []string) error {
	appCtx := getAppContext(cmd)
	cfg := appCtx.Config

	format, err := parseOutputFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	if format == formatPDF && cfg.Output.File == "" && !cfg.Output.Save {
		return fmt.Errorf("%w: pdf reports need --output or --save", domainerrors.ErrOutputRequired)
	}

	var threshold finding.Severity
	if cfg.Output.FailOn != "" {
		if threshold, err = finding.ParseSeverity(cfg.Output.FailOn); err != nil {
			return fmt.Errorf("invalid --fail-on: %w", err)
		}
	}

	var opts []scan.Option
	var scanMetrics *metrics.Metrics
	if cfg.Output.MetricsFile != "" {
		scanMetrics = metrics.NewMetrics()
		opts = append(opts, scan.WithObserver(scanMetrics))
	}

	container, err := application.NewContainer(cfg.Scan.settings(), appCtx.Logger.Desugar(), opts...)
	if err != nil {
		return err
	}

	if len(cfg.Scan.Probes) > 0 && len(container.Orchestrator.Select(cfg.Scan.Probes)) == 0 {
		return fmt.Errorf("%w: %s (available: %s)", domainerrors.ErrNoProbesSelected,
			strings.Join(cfg.Scan.Probes, ", "), strings.Join(registryKeys(container.Orchestrator), ", "))
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "\n%s Received %s, finalizing partial results...\n", colorWarn("!"), sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	var progress *progressPrinter
	if cfg.Scan.ProgressEnabled {
		progress = newProgressPrinter(os.Stderr, len(targets), "scan")
		progress.Start()
	}

	runner := &scan.Runner{
		Concurrency: cfg.Scan.Concurrency,
		RateLimit:   cfg.Scan.RateLimit,
		Probes:      cfg.Scan.Probes,
	}

	startAll := time.Now()
	reports := runner.Run(ctx, targets, container.Orchestrator, func(_ int, report *finding.ScanReport) {
		appCtx.Logger.Debugw("scan report ready",
			"target", report.Target,
			"scan_id", report.ScanID,
			"status", report.Status,
			"findings", len(report.Findings))
		if progress != nil {
			progress.Increment(report.Status == finding.ScanStatusCompleted, report.Duration.Seconds())
		}
	})

	if progress != nil {
		progress.Stop()
	}

	if err := writeReports(cmd, appCtx, format, reports); err != nil {
		return err
	}

	if scanMetrics != nil {
		if err := scanMetrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return err
		}
	}

	if cfg.Scan.Telemetry {
		if err := recordTelemetry(appCtx, reports, time.Since(startAll)); err != nil {
			fmt.Fprintf(os.Stderr, "%s failed to record telemetry: %v\n", colorWarn("Warning:"), err)
		}
	}

	if threshold != "" {
		if count := countAtLeast(reports, threshold); count > 0 {
			return &SeverityThresholdError{Threshold: threshold, Count: count}
		}
	}
	return nil
}

// writeReports renders to stdout unless --output is set, and additionally saves
// one file per report under the results directory when --save is set.
func writeReports(cmd *cobra.Command, appCtx *AppContext, format outputFormat, reports []*finding.ScanReport) error {
	out := appCtx.Config.Output
	noColor := out.NoColor || color.NoColor

	switch {
	case out.File != "":
		data, err := encodeReports(format, reports, true)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(out.File, data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", colorSuccess("Report written:"), out.File)
	case format != formatPDF:
		data, err := encodeReports(format, reports, noColor)
		if err != nil {
			return err
		}
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	if !out.Save {
		return nil
	}
	for _, report := range reports {
		path, err := ensureReportPath(appCtx.ResultsDir, report.ScanID, "report."+format.Extension())
		if err != nil {
			return err
		}
		data, err := encodeReports(format, []*finding.ScanReport{report}, true)
		if err != nil {
			return err
		}
		if err := writeFileAtomic(path, data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s (%s)\n", colorSuccess("Saved:"), path, report.Target)
	}
	return nil
}

func countAtLeast(reports []*finding.ScanReport, threshold finding.Severity) int {
	count := 0
	for _, report := range reports {
		for _, f := range report.Findings {
			if f.Type != finding.TypeError && f.Severity.AtLeast(threshold) {
				count++
			}
		}
	}
	return count
}

func registryKeys(o *scan.Orchestrator) []string {
	regs := o.Registrations()
	keys := make([]string, 0, len(regs))
	for _, reg := range regs {
		keys = append(keys, reg.Key)
	}
	return keys
}

func init() {
	flags := scanCmd.Flags()

	flags.StringSliceVar(&cliConfig.Scan.Probes, "only", cliConfig.Scan.Probes, "probes to run (headers, tls, ports); default all")
	flags.StringVarP(&cliConfig.Output.Format, "format", "f", cliConfig.Output.Format, "output format: table, json, yaml or pdf")
	flags.StringVarP(&cliConfig.Output.File, "output", "o", "", "write the report to this file instead of stdout")
	flags.BoolVar(&cliConfig.Output.Save, "save", false, "also save each report under <results_dir>/<scan_id>/")
	flags.StringVar(&cliConfig.Output.MetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")
	flags.StringVar(&cliConfig.Output.FailOn, "fail-on", "", "exit non-zero when a finding is at or above this severity")
	flags.BoolVar(&cliConfig.Output.NoColor, "no-color", false, "disable coloured table output")

	flags.IntVar(&cliConfig.Scan.TimeoutSecs, "timeout", cliConfig.Scan.TimeoutSecs, "timeout in seconds for each network operation")
	flags.IntVar(&cliConfig.Scan.MaxDurationSecs, "max-duration", cliConfig.Scan.MaxDurationSecs, "upper bound in seconds for a whole scan of one target (0 disables)")
	flags.StringVar(&cliConfig.Scan.UserAgent, "user-agent", cliConfig.Scan.UserAgent, "User-Agent sent with the header fetch")
	flags.BoolVar(&cliConfig.Scan.InsecureFetch, "insecure", cliConfig.Scan.InsecureFetch, "skip certificate verification on the header fetch")
	flags.IntVar(&cliConfig.Scan.TLSPort, "tls-port", cliConfig.Scan.TLSPort, "port used for TLS handshakes")
	flags.IntSliceVar(&cliConfig.Scan.Ports, "ports", cliConfig.Scan.Ports, "ports probed during service discovery")
	flags.IntVar(&cliConfig.Scan.PortWorkers, "port-workers", cliConfig.Scan.PortWorkers, "concurrent TCP connects during discovery")
	flags.IntVar(&cliConfig.Scan.PortTimeoutMs, "port-timeout", cliConfig.Scan.PortTimeoutMs, "TCP connect timeout in milliseconds")
	flags.IntVar(&cliConfig.Scan.BlockingSlots, "blocking-slots", cliConfig.Scan.BlockingSlots, "concurrent blocking network calls shared by all probes")
	flags.StringSliceVar(&cliConfig.Scan.Nameservers, "nameserver", cliConfig.Scan.Nameservers, "DNS servers used to resolve targets (default system resolver)")
	flags.IntVarP(&cliConfig.Scan.Concurrency, "concurrency", "c", cliConfig.Scan.Concurrency, "targets scanned in parallel")
	flags.IntVar(&cliConfig.Scan.RateLimit, "rate-limit", cliConfig.Scan.RateLimit, "targets started per second (0 = unlimited)")
	flags.BoolVar(&cliConfig.Scan.ProgressEnabled, "progress", false, "print progress to stderr")
	flags.BoolVar(&cliConfig.Scan.Telemetry, "telemetry", false, "append a run summary to <results_dir>/telemetry.jsonl")
}
