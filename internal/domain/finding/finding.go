package finding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Type classifies what kind of observation a Finding records.
type Type string

const (
	TypeVulnerability         Type = "vulnerability"
	TypeMisconfiguration      Type = "misconfiguration"
	TypeInformation           Type = "information"
	TypeInformationDisclosure Type = "information_disclosure"
	TypeError                 Type = "error"
)

// Severity is an ordered risk level, critical > high > medium > low > info.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// AllSeverities lists severities from most to least severe.
func AllSeverities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

// Rank returns a comparable weight; higher is more severe. Unknown values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether s is a known severity
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ParseSeverity converts a case-insensitive name into a Severity.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown severity %q", v)
	}
	return s, nil
}

// OWASP Top 10 (2021)
const (
	OWASPSecurityMisconfiguration = "A05:2021 - Security Misconfiguration"
	OWASPCryptographicFailures    = "A02:2021 - Cryptographic Failures"
)

// Finding is a single structured security observation.
type Finding struct {
	ID            string   `json:"id" yaml:"id"`
	Type          Type     `json:"type" yaml:"type"`
	Severity      Severity `json:"severity" yaml:"severity"`
	Title         string   `json:"title" yaml:"title"`
	Description   string   `json:"description" yaml:"description"`
	Remediation   string   `json:"remediation,omitempty" yaml:"remediation,omitempty"`
	OWASPCategory string   `json:"owasp_category,omitempty" yaml:"owasp_category,omitempty"`
	CVEID         string   `json:"cve_id,omitempty" yaml:"cve_id,omitempty"`
	Location      string   `json:"location" yaml:"location"`
	Evidence      Evidence `json:"evidence" yaml:"evidence"`
}

// NewID derives a stable identifier from the probe name, the rule name and the parts
// of the observation that distinguish one emission of the rule from another.
// Identical inputs always yield the same ID.
func NewID(probe, rule string, shape ...string) string {
	h := sha256.New()
	h.Write([]byte(probe))
	h.Write([]byte{0})
	h.Write([]byte(rule))
	for _, part := range shape {
		h.Write([]byte{0})
		h.Write([]byte(part))
	}
	sum := hex.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s.%s.%s", probe, rule, sum[:12])
}

// Error builds the error Finding used when a probe or one of its collaborators faults.
func Error(id, title, location string, err error) Finding {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Finding{
		ID:          id,
		Type:        TypeError,
		Severity:    SeverityInfo,
		Title:       title,
		Description: fmt.Sprintf("%s: %s", title, msg),
		Location:    location,
		Evidence:    NewEvidence().With("error", msg),
	}
}

// CountBySeverity tallies findings per severity
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int, len(AllSeverities()))
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
