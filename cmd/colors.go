package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorFatal   = color.New(color.FgMagenta, color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "completed", "success":
		return colorSuccess(status)
	case "error", "fail", "failed":
		return colorError(status)
	default:
		return status
	}
}

func formatSeverityWithColor(sev finding.Severity, text string) string {
	switch sev {
	case finding.SeverityCritical:
		return colorFatal(text)
	case finding.SeverityHigh:
		return colorError(text)
	case finding.SeverityMedium:
		return colorWarn(text)
	case finding.SeverityLow:
		return colorInfo(text)
	default:
		return text
	}
}

// severityColor is the table cell colour for a severity.
func severityColor(sev finding.Severity) lipgloss.Color {
	switch sev {
	case finding.SeverityCritical:
		return lipgloss.Color("201")
	case finding.SeverityHigh:
		return lipgloss.Color("196")
	case finding.SeverityMedium:
		return lipgloss.Color("214")
	case finding.SeverityLow:
		return lipgloss.Color("45")
	default:
		return lipgloss.Color("250")
	}
}
