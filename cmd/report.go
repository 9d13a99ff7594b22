package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jung-kurt/gofpdf"
	"gopkg.in/yaml.v3"

	"github.com/khanhnv2901/seca-scan/internal/domain/finding"
	domainerrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
)

const (
	jsonPrefix = ""
	jsonIndent = "  "
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
	formatPDF   outputFormat = "pdf"
)

func parseOutputFormat(v string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(v))); f {
	case formatTable, formatJSON, formatYAML, formatPDF:
		return f, nil
	case "yml":
		return formatYAML, nil
	case "":
		return formatTable, nil
	}
	return "", &FormatError{Format: v}
}

// Extension is the file extension used when the format is saved to disk.
func (f outputFormat) Extension() string {
	switch f {
	case formatTable:
		return "txt"
	default:
		return string(f)
	}
}

// encodeReports renders reports in format. A single report is emitted as an object
// in json and yaml; several reports as a list.
func encodeReports(format outputFormat, reports []*finding.ScanReport, noColor bool) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case formatTable:
		for i, report := range reports {
			if i > 0 {
				buf.WriteString("\n")
			}
			writeReportTable(&buf, report, noColor)
		}
	case formatJSON:
		var v any = reports
		if len(reports) == 1 {
			v = reports[0]
		}
		data, err := json.MarshalIndent(v, jsonPrefix, jsonIndent)
		if err != nil {
			return nil, fmt.Errorf("encode json report: %w", err)
		}
		buf.Write(data)
		buf.WriteString("\n")
	case formatYAML:
		var v any = reports
		if len(reports) == 1 {
			v = reports[0]
		}
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encode yaml report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml report: %w", err)
		}
	case formatPDF:
		return generatePDFReport(reports)
	default:
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrUnknownFormat, format)
	}
	return buf.Bytes(), nil
}

// sortedFindings orders findings by severity, keeping report order within a severity.
func sortedFindings(findings []finding.Finding) []finding.Finding {
	out := append([]finding.Finding(nil), findings...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out
}

func severitySummary(report *finding.ScanReport, paint bool) string {
	counts := report.SeverityCounts()
	parts := make([]string, 0, len(finding.AllSeverities()))
	for _, sev := range finding.AllSeverities() {
		label := fmt.Sprintf("%s:%d", strings.ToUpper(string(sev)), counts[sev])
		if paint {
			label = formatSeverityWithColor(sev, label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

// writeReportTable prints the report header, a findings table and the per-probe status.
func writeReportTable(w io.Writer, report *finding.ScanReport, noColor bool) {
	status := string(report.Status)
	if !noColor {
		status = formatStatusWithColor(status)
	}
	fmt.Fprintf(w, "Target:   %s\n", report.Target)
	fmt.Fprintf(w, "Scan ID:  %s\n", report.ScanID)
	fmt.Fprintf(w, "Status:   %s (%s)\n", status, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Findings: %d  %s\n", len(report.Findings), severitySummary(report, !noColor))

	probes := make([]string, 0, len(report.Probes))
	for _, p := range report.Probes {
		state := string(p.State)
		if !noColor {
			state = formatStatusWithColor(state)
		}
		probes = append(probes, fmt.Sprintf("%s=%s", p.Name, state))
	}
	fmt.Fprintf(w, "Probes:   %s\n", strings.Join(probes, " "))

	if len(report.Findings) == 0 {
		fmt.Fprintln(w, "\nNo findings.")
		return
	}

	headers := []string{"Severity", "Type", "Title", "Location"}
	var rows [][]string
	for _, f := range sortedFindings(report.Findings) {
		rows = append(rows, []string{
			strings.ToUpper(string(f.Severity)),
			string(f.Type),
			truncate(f.Title, 60),
			truncate(f.Location, 24),
		})
	}

	fmt.Fprintln(w)
	if noColor {
		writeSimpleTable(w, headers, rows)
		return
	}

	t := table.New().
		Headers(headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
			}
			style := lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1)
			if col == 0 && row >= 0 && row < len(rows) {
				style = style.Foreground(severityColor(finding.Severity(strings.ToLower(rows[row][0]))))
			}
			return style
		})

	for _, row := range rows {
		t.Row(row...)
	}

	fmt.Fprintln(w, t.Render())
}

func writeSimpleTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprintf(w, "%-*s", widths[i], cell)
		}
		fmt.Fprintln(w)
	}

	writeRow(headers)
	for i, width := range widths {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", width))
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		writeRow(row)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// pdfFill maps severities to header fill colours.
var pdfFill = map[finding.Severity][3]int{
	finding.SeverityCritical: {220, 80, 80},
	finding.SeverityHigh:     {240, 150, 110},
	finding.SeverityMedium:   {245, 210, 120},
	finding.SeverityLow:      {180, 215, 240},
	finding.SeverityInfo:     {230, 230, 230},
}

func generatePDFReport(reports []*finding.ScanReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, report := range reports {
		pdf.AddPage()

		// Title
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Security Scan Report: %s", report.Target)), "", 1, "C", false, 0, "")
		pdf.Ln(5)

		// Metadata
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Scan ID: %s", report.ScanID), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", report.Status), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Started: %s", report.StartedAt.UTC().Format(time.RFC3339)), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Completed: %s", report.CompletedAt.UTC().Format(time.RFC3339)), "", 1, "", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Duration: %s", report.Duration.Round(time.Millisecond)), "", 1, "", false, 0, "")
		pdf.Ln(5)

		// Summary
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Findings: %d | %s", len(report.Findings), severitySummary(report, false)), "", 1, "", false, 0, "")
		for _, p := range report.Probes {
			line := fmt.Sprintf("  %s: %s (%d findings, %s)", p.Name, p.State, p.Findings, p.Duration.Round(time.Millisecond))
			if p.Error != "" {
				line += " - " + p.Error
			}
			pdf.MultiCell(0, 5, tr(line), "", "", false)
		}
		pdf.Ln(5)

		// Findings
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Findings", "", 1, "", false, 0, "")
		pdf.Ln(2)

		for _, f := range sortedFindings(report.Findings) {
			if pdf.GetY() > 250 {
				pdf.AddPage()
			}

			fill := pdfFill[f.Severity]
			pdf.SetFont("Arial", "B", 10)
			pdf.SetFillColor(fill[0], fill[1], fill[2])
			pdf.CellFormat(0, 7, tr(fmt.Sprintf("[%s] %s", strings.ToUpper(string(f.Severity)), f.Title)), "", 1, "", true, 0, "")
			pdf.Ln(1)

			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("Type: %s | Location: %s", f.Type, f.Location)), "", 1, "", false, 0, "")
			if f.OWASPCategory != "" {
				pdf.CellFormat(0, 5, tr(fmt.Sprintf("OWASP: %s", f.OWASPCategory)), "", 1, "", false, 0, "")
			}
			if f.CVEID != "" {
				pdf.CellFormat(0, 5, fmt.Sprintf("CVE: %s", f.CVEID), "", 1, "", false, 0, "")
			}
			if f.Description != "" {
				pdf.MultiCell(0, 4, tr(f.Description), "", "", false)
			}
			if f.Remediation != "" {
				pdf.SetFont("Arial", "I", 8)
				pdf.MultiCell(0, 4, tr(fmt.Sprintf("Remediation: %s", f.Remediation)), "", "", false)
			}
			if f.Evidence.Len() > 0 {
				pdf.SetFont("Courier", "", 7)
				for _, field := range f.Evidence.Fields() {
					pdf.MultiCell(0, 3.5, tr(fmt.Sprintf("  %s: %v", field.Key, field.Value)), "", "", false)
				}
			}
			pdf.Ln(3)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf report: %w", err)
	}
	return buf.Bytes(), nil
}
