package cmd

import (
	"fmt"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

// FormatError reports an unsupported --format value.
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid format: %s (must be table, json, yaml, or pdf)", e.Format)
}

func (e *FormatError) Unwrap() error {
	return domainerrors.ErrUnknownFormat
}

// SeverityThresholdError signals that findings reached the --fail-on severity.
type SeverityThresholdError struct {
	Threshold finding.Severity
	Count     int
}

func (e *SeverityThresholdError) Error() string {
	noun := "findings"
	if e.Count == 1 {
		noun = "finding"
	}
	return fmt.Sprintf("%d %s at or above %s severity", e.Count, noun, e.Threshold)
}
