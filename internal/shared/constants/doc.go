// Package constants centralizes defaults and policy thresholds shared across the scanner.
//
// Timeouts, worker counts and certificate/HSTS thresholds live here so cmd/ and the
// probes agree on the same numbers without importing each other.
package constants
