package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/seca-scan/internal/application"
	"github.com/khanhnv2901/seca-scan/internal/probe"
	"github.com/khanhnv2901/seca-scan/internal/shared/constants"
)

const (
	defaultTimeoutSeconds     = 10
	defaultMaxDurationSeconds = 300
	defaultPortTimeoutMillis  = 1500
	defaultOutputFormat       = "table"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Scan   ScanRuntimeConfig
	Output OutputConfig
}

// ScanRuntimeConfig consolidates flag-driven settings for the scan command.
type ScanRuntimeConfig struct {
	TimeoutSecs     int
	MaxDurationSecs int
	UserAgent       string
	TLSPort         int
	Ports           []int
	PortWorkers     int
	PortTimeoutMs   int
	BlockingSlots   int
	Nameservers     []string
	InsecureFetch   bool
	Concurrency     int
	RateLimit       int
	Probes          []string
	ProgressEnabled bool
	Telemetry       bool
}

// OutputConfig controls how reports are rendered and persisted.
type OutputConfig struct {
	Format      string
	File        string
	Save        bool
	MetricsFile string
	FailOn      string
	NoColor     bool
}

type scanOverrides struct {
	TimeoutSecs     *int
	MaxDurationSecs *int
	UserAgent       string
	TLSPort         *int
	Ports           []int
	PortWorkers     *int
	PortTimeoutMs   *int
	BlockingSlots   *int
	Nameservers     []string
	InsecureFetch   *bool
	Concurrency     *int
	RateLimit       *int
	Probes          []string
	Telemetry       *bool
	Format          string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Scan: ScanRuntimeConfig{
			TimeoutSecs:     defaultTimeoutSeconds,
			MaxDurationSecs: defaultMaxDurationSeconds,
			UserAgent:       constants.DefaultUserAgent,
			TLSPort:         constants.DefaultTLSPort,
			Ports:           probe.WellKnownPorts(),
			PortWorkers:     constants.DefaultPortWorkers,
			PortTimeoutMs:   defaultPortTimeoutMillis,
			BlockingSlots:   constants.DefaultBlockingSlots,
			Nameservers:     []string{},
			InsecureFetch:   true,
			Concurrency:     1,
			RateLimit:       0,
			Probes:          []string{},
		},
		Output: OutputConfig{
			Format: defaultOutputFormat,
		},
	}
}

func loadScanOverrides() scanOverrides {
	overrides := scanOverrides{}

	intKey := func(key string) *int {
		if !viper.IsSet(key) {
			return nil
		}
		val := viper.GetInt(key)
		return &val
	}

	overrides.TimeoutSecs = intKey("scan.timeout_secs")
	overrides.MaxDurationSecs = intKey("scan.max_duration_secs")
	overrides.TLSPort = intKey("scan.tls_port")
	overrides.PortWorkers = intKey("scan.port_workers")
	overrides.PortTimeoutMs = intKey("scan.port_timeout_ms")
	overrides.BlockingSlots = intKey("scan.blocking_slots")
	overrides.Concurrency = intKey("scan.concurrency")
	overrides.RateLimit = intKey("scan.rate_limit")

	if viper.IsSet("scan.user_agent") {
		overrides.UserAgent = viper.GetString("scan.user_agent")
	}

	if viper.IsSet("scan.ports") {
		overrides.Ports = viper.GetIntSlice("scan.ports")
	}

	if viper.IsSet("scan.nameservers") {
		overrides.Nameservers = viper.GetStringSlice("scan.nameservers")
	}

	if viper.IsSet("scan.insecure_fetch") {
		val := viper.GetBool("scan.insecure_fetch")
		overrides.InsecureFetch = &val
	}

	if viper.IsSet("scan.probes") {
		overrides.Probes = viper.GetStringSlice("scan.probes")
	}

	if viper.IsSet("scan.telemetry") {
		val := viper.GetBool("scan.telemetry")
		overrides.Telemetry = &val
	}

	if viper.IsSet("output.format") {
		overrides.Format = viper.GetString("output.format")
	}

	return overrides
}

// applyConfigDefaults merges config file values into the runtime config when the user
// did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadScanOverrides()
	flags := scanCmd.Flags()
	cfg := cliConfig

	setInt := func(name string, value *int, setter func(int)) {
		if value != nil {
			applyIntDefault(flags, name, *value, setter)
		}
	}

	setInt("timeout", overrides.TimeoutSecs, func(v int) { cfg.Scan.TimeoutSecs = v })
	setInt("max-duration", overrides.MaxDurationSecs, func(v int) { cfg.Scan.MaxDurationSecs = v })
	setInt("tls-port", overrides.TLSPort, func(v int) { cfg.Scan.TLSPort = v })
	setInt("port-workers", overrides.PortWorkers, func(v int) { cfg.Scan.PortWorkers = v })
	setInt("port-timeout", overrides.PortTimeoutMs, func(v int) { cfg.Scan.PortTimeoutMs = v })
	setInt("blocking-slots", overrides.BlockingSlots, func(v int) { cfg.Scan.BlockingSlots = v })
	setInt("concurrency", overrides.Concurrency, func(v int) { cfg.Scan.Concurrency = v })
	setInt("rate-limit", overrides.RateLimit, func(v int) { cfg.Scan.RateLimit = v })

	if overrides.InsecureFetch != nil {
		applyBoolDefault(flags, "insecure", *overrides.InsecureFetch, func(v bool) { cfg.Scan.InsecureFetch = v })
	}
	if overrides.Telemetry != nil {
		applyBoolDefault(flags, "telemetry", *overrides.Telemetry, func(v bool) { cfg.Scan.Telemetry = v })
	}

	if overrides.UserAgent != "" {
		applyStringDefault(flags, "user-agent", overrides.UserAgent, func(v string) { cfg.Scan.UserAgent = v })
	}
	if overrides.Format != "" {
		applyStringDefault(flags, "format", overrides.Format, func(v string) { cfg.Output.Format = v })
	}

	if len(overrides.Ports) > 0 {
		applySliceDefault(flags, "ports", overrides.Ports, func(v []int) { cfg.Scan.Ports = v })
	}
	if len(overrides.Nameservers) > 0 {
		applySliceDefault(flags, "nameserver", overrides.Nameservers, func(v []string) { cfg.Scan.Nameservers = v })
	}
	if len(overrides.Probes) > 0 {
		applySliceDefault(flags, "only", overrides.Probes, func(v []string) { cfg.Scan.Probes = v })
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applySliceDefault[T any](flags *pflag.FlagSet, name string, value []T, setter func([]T)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(append([]T(nil), value...))
}

// settings converts the runtime config into container settings.
func (c ScanRuntimeConfig) settings() application.Settings {
	s := application.DefaultSettings()
	s.OpTimeout = time.Duration(c.TimeoutSecs) * time.Second
	s.MaxDuration = time.Duration(c.MaxDurationSecs) * time.Second
	if c.UserAgent != "" {
		s.UserAgent = c.UserAgent
	}
	s.InsecureFetch = c.InsecureFetch
	if c.TLSPort > 0 {
		s.TLSPort = c.TLSPort
	}
	if len(c.Ports) > 0 {
		s.Ports = append([]int(nil), c.Ports...)
	}
	s.PortWorkers = c.PortWorkers
	s.PortTimeout = time.Duration(c.PortTimeoutMs) * time.Millisecond
	if c.BlockingSlots > 0 {
		s.BlockingSlots = c.BlockingSlots
	}
	s.Nameservers = append([]string(nil), c.Nameservers...)
	return s
}
