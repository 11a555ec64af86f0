package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cybershield/shieldscan/internal/application/assessment"
	"github.com/cybershield/shieldscan/internal/logaudit"
	consts "github.com/cybershield/shieldscan/internal/shared/constants"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
	"github.com/cybershield/shieldscan/internal/shared/security"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit local data files and access logs",
}

var auditFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Scan a data file for exposed PII, secrets and weak credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		data, err := readAuditFile(args[0])
		if err != nil {
			return err
		}

		res := appCtx.Services.Assessment.AuditFile(commandContext(cmd), security.UploadName(args[0]), data)
		return render(cmd.OutOrStdout(), format, res, func(w io.Writer) {
			printFileResult(w, res)
		})
	},
}

var auditLogsCmd = &cobra.Command{
	Use:   "logs <path>",
	Short: "Detect attack patterns in an Apache/Nginx access log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}

		data, err := readAuditFile(args[0])
		if err != nil {
			return err
		}

		report := appCtx.Services.Assessment.AuditLogs(data)
		return render(cmd.OutOrStdout(), format, report, func(w io.Writer) {
			printLogReport(w, report)
		})
	},
}

func formatFlag(cmd *cobra.Command) (outputFormat, error) {
	value, _ := cmd.Flags().GetString("format")
	return parseOutputFormat(value)
}

// readAuditFile enforces the same size cap as the upload API.
func readAuditFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > consts.MaxUploadBytes {
		return nil, fmt.Errorf("%s: %w", path, sharedErrors.ErrUploadTooLarge)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%s: %w", path, sharedErrors.ErrEmptyUpload)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func printFileResult(w io.Writer, res *assessment.FileResult) {
	fmt.Fprintf(w, "%s %s\n", colorInfo("→"), colorBold(res.Filename))
	fmt.Fprintf(w, "  Type: %s | Size: %d bytes\n", res.FileType, res.SizeBytes)
	fmt.Fprintf(w, "  Security score: %s\n", formatScoreWithColor(res.SecurityScore))

	if len(res.Vulnerabilities) == 0 {
		fmt.Fprintf(w, "  %s no sensitive content found\n", colorSuccess("✓"))
	}
	for _, v := range res.Vulnerabilities {
		fmt.Fprintf(w, "  %s %s: %s", formatSeverityWithColor(v.Severity), v.Vulnerability, v.Description)
		if v.Sample != nil {
			fmt.Fprintf(w, " %s", v.Sample)
		}
		fmt.Fprintln(w)
	}

	s := res.Structure
	if s.Error != "" {
		fmt.Fprintf(w, "  Structure: %s\n", colorError(s.Error))
	}
	if len(s.Tables) == 0 {
		return
	}
	fmt.Fprintln(w, "  Tables:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "    NAME\tCOLUMNS\tROWS\tPRIMARY KEY")
	for _, t := range s.Tables {
		fmt.Fprintf(tw, "    %s\t%d\t%d\t%t\n", t.Name, t.Columns, t.Rows, t.HasPrimaryKey)
	}
	_ = tw.Flush()
	if len(s.Preview.Headers) > 0 {
		fmt.Fprintf(w, "  Preview columns: %s (%d rows shown)\n", strings.Join(s.Preview.Headers, ", "), len(s.Preview.Rows))
	}
}

func printLogReport(w io.Writer, report logaudit.Report) {
	if !report.Valid {
		fmt.Fprintf(w, "%s %s\n", colorError("✗"), report.Error)
		return
	}
	a := report.Analysis
	fmt.Fprintf(w, "%s parsed %d of %d lines\n", colorInfo("→"), report.ParsedLines, report.TotalLines)

	fmt.Fprintln(w, "  Top IPs:")
	for _, ip := range a.TopIPs {
		fmt.Fprintf(w, "    %-18s %d\n", ip.IP, ip.Count)
	}

	codes := make([]string, 0, len(a.StatusCodes))
	for code := range a.StatusCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	fmt.Fprint(w, "  Status codes:")
	for _, code := range codes {
		fmt.Fprintf(w, " %s=%d", code, a.StatusCodes[code])
	}
	fmt.Fprintln(w)

	if a.ThreatCount == 0 {
		fmt.Fprintf(w, "  %s no threats detected\n", colorSuccess("✓"))
		return
	}
	fmt.Fprintf(w, "  Threats: %s\n", colorError(a.ThreatCount))
	for _, th := range a.Threats {
		fmt.Fprintf(w, "    %s %s %s %s\n", colorWarn(th.Type), th.IP, th.Timestamp, th.Payload)
	}
}

func init() {
	for _, c := range []*cobra.Command{auditFileCmd, auditLogsCmd} {
		c.Flags().String("format", string(formatText), "Output format: text|json|yaml")
		auditCmd.AddCommand(c)
	}
}
