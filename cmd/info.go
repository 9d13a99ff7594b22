package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration, data directory paths and scan defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config.Scan

		dataDir, err := getDataDir()
		if err != nil {
			return fmt.Errorf("failed to get data directory: %w", err)
		}

		resultsExists := "(not created yet)"
		if _, err := os.Stat(appCtx.ResultsDir); err == nil {
			resultsExists = "(exists)"
		}

		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			configFile = "none (using defaults)"
		}

		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "SECA-SCAN System Information")
		fmt.Fprintln(out, "============================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:             %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Configuration File:   %s\n", configFile)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Data Directory:     %s\n", dataDir)
		fmt.Fprintf(out, "  Results Directory:  %s %s\n", appCtx.ResultsDir, resultsExists)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Scan Defaults:")
		fmt.Fprintf(out, "  Operation Timeout:  %ds\n", cfg.TimeoutSecs)
		fmt.Fprintf(out, "  Scan Deadline:      %ds\n", cfg.MaxDurationSecs)
		fmt.Fprintf(out, "  User-Agent:         %s\n", cfg.UserAgent)
		fmt.Fprintf(out, "  TLS Port:           %d\n", cfg.TLSPort)
		fmt.Fprintf(out, "  Ports:              %s\n", joinInts(cfg.Ports))
		fmt.Fprintf(out, "  Port Workers:       %d\n", cfg.PortWorkers)
		fmt.Fprintf(out, "  Nameservers:        %s\n", orDefault(strings.Join(cfg.Nameservers, ", "), "system resolver"))
		fmt.Fprintf(out, "  Insecure Fetch:     %t\n", cfg.InsecureFetch)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To override defaults, create ~/.seca-scan.yaml with e.g.:")
		fmt.Fprintln(out, "  results_dir: /custom/path/to/results")
		fmt.Fprintln(out, "  scan:")
		fmt.Fprintln(out, "    timeout_secs: 5")
		fmt.Fprintln(out, "    ports: [22, 80, 443]")

		return nil
	},
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
