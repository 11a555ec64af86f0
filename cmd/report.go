package cmd

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/cobra"

	"github.com/cybershield/shieldscan/internal/application/assessment"
	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/domain/scan"
	consts "github.com/cybershield/shieldscan/internal/shared/constants"
)

const markdownTemplatePath = "templates/report.md"

//go:embed templates/report.md
var reportTemplateFS embed.FS

var reportFormats = []string{"json", "md", "pdf"}

var markdownReportTemplate = template.Must(
	template.New("report.md").Funcs(template.FuncMap{
		"formatTime": formatShortTimestamp,
	}).ParseFS(reportTemplateFS, markdownTemplatePath),
)

var reportCmd = &cobra.Command{
	Use:   "report <scan-id>",
	Short: "Export a stored scan as JSON, Markdown or PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		format = strings.ToLower(format)
		if !isReportFormat(format) {
			return &InvalidFormatError{Format: format, Allowed: reportFormats}
		}

		record, err := loadScan(cmd, appCtx, args[0])
		if err != nil {
			return err
		}

		content, err := generateReport(record, format, time.Now())
		if err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}

		reportPath := output
		if reportPath == "" {
			reportPath, err = resolveReportPath(appCtx.ResultsDir, record.ID, format)
			if err != nil {
				return fmt.Errorf("resolve report path: %w", err)
			}
		}
		if err := ensureParentDir(reportPath); err != nil {
			return err
		}
		if err := os.WriteFile(reportPath, content, consts.DefaultFilePerm); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		appCtx.logger().Infow("report generated", "scan_id", record.ID, "format", format, "path", reportPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Report generated: %s\n", reportPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Format: %s\n", format)
		return nil
	},
}

func isReportFormat(format string) bool {
	for _, f := range reportFormats {
		if f == format {
			return true
		}
	}
	return false
}

func generateReport(record *scan.Record, format string, now time.Time) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(record, "", "  ")
	case "md":
		return generateMarkdownReport(newReportData(record, now))
	case "pdf":
		return generatePDFReportBytes(newReportData(record, now))
	}
	return nil, &InvalidFormatError{Format: format, Allowed: reportFormats}
}

// reportData holds the data for Markdown/PDF rendering
type reportData struct {
	*scan.Record
	GeneratedAt string
}

func newReportData(record *scan.Record, now time.Time) reportData {
	return reportData{Record: record, GeneratedAt: formatShortTimestamp(now)}
}

func probeResultFromRecord(r *scan.Record) *assessment.ProbeResult {
	return &assessment.ProbeResult{
		ScanID:   r.ID,
		URL:      r.URL,
		Findings: r.Findings,
		Analysis: r.Analysis,
	}
}

func formatShortTimestamp(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func generateMarkdownReport(data reportData) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownReportTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func severityFill(s finding.Severity) (int, int, int) {
	switch s {
	case finding.SeverityCritical, finding.SeverityHigh:
		return 254, 226, 226
	case finding.SeverityMedium:
		return 254, 243, 199
	default:
		return 240, 240, 240
	}
}

func generatePDFReportBytes(data reportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Title
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Security Scan Report: %s", data.URL)), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Metadata section
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Scan ID: %d", data.ID), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Scan date: %s", formatShortTimestamp(data.ScanDate)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", data.GeneratedAt), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Summary section
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Risk Score: %d/100", data.RiskScore), "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, tr(data.Analysis.Summary), "", "", false)
	pdf.Ln(5)

	// Findings
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Findings", "", 1, "", false, 0, "")
	if len(data.Analysis.EnrichedResults) == 0 {
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(0, 6, "No findings were recorded for this scan.", "", 1, "", false, 0, "")
	}
	for _, f := range data.Analysis.EnrichedResults {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		r, g, b := severityFill(f.Severity)
		pdf.SetFillColor(r, g, b)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("[%s] %s", f.Severity, f.Vulnerability)), "", 1, "", true, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s | %s (%s) | CVSS %.1f", f.Check, f.RiskType, f.CWEID, f.CVSSScore)), "", 1, "", false, 0, "")
		if f.Description != "" {
			pdf.SetFont("Arial", "I", 8)
			pdf.MultiCell(0, 4, tr(f.Description), "", "", false)
		}
		pdf.Ln(2)
	}
	pdf.Ln(3)

	// Recommendations
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Recommendations", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, rec := range data.Analysis.Recommendations {
		if pdf.GetY() > 270 {
			pdf.AddPage()
		}
		pdf.MultiCell(0, 5, tr("- "+rec), "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func init() {
	reportCmd.Flags().String("format", "md", "Output format: json|md|pdf")
	reportCmd.Flags().StringP("output", "O", "", "Output path (default <results-dir>/reports/scan-<id>.<format>)")
}
