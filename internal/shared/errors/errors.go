package errors

import "errors"

// Domain errors
var (
	// Target errors
	ErrEmptyTarget   = errors.New("target cannot be empty")
	ErrInvalidTarget = errors.New("invalid target")

	// Collaborator errors
	ErrFetchFailed     = errors.New("fetch failed")
	ErrHandshakeFailed = errors.New("tls handshake failed")
	ErrDiscoveryFailed = errors.New("service discovery failed")
	ErrResolveFailed   = errors.New("host resolution failed")

	// Orchestration errors
	ErrProbePanic       = errors.New("probe panicked")
	ErrProbeAbandoned   = errors.New("probe abandoned before completion")
	ErrNoProbesSelected = errors.New("no probes selected")

	// Output errors
	ErrUnknownFormat  = errors.New("unknown output format")
	ErrOutputRequired = errors.New("output file required for this format")
	ErrPathEscape     = errors.New("path escapes base directory")
)
