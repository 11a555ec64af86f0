package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cybershield/shieldscan/internal/application/assessment"
	"github.com/cybershield/shieldscan/internal/checker"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>...",
	Short: "Run the non-intrusive probe suite against one or more targets",
	Long: `Checks security headers, TLS usage and a short list of common TCP ports.
Only scan systems you own or are authorized to test; --confirm records that consent.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		confirmed, _ := cmd.Flags().GetBool("confirm")
		formatFlag, _ := cmd.Flags().GetString("format")

		format, err := parseOutputFormat(formatFlag)
		if err != nil {
			return err
		}
		if !confirmed {
			return fmt.Errorf("%w (pass --confirm)", sharedErrors.ErrConsentRequired)
		}

		runner := &checker.Runner{
			Concurrency: appCtx.Config.Probe.Concurrency,
			RateLimit:   appCtx.Config.Probe.RateLimit,
		}
		var onDone checker.AuditFunc
		var progress *progressPrinter
		if len(args) > 1 && format == formatText {
			progress = newProgressPrinter(cmd.ErrOrStderr(), len(args), "probe")
			progress.Start()
			onDone = progress.Observe
		}

		results, err := appCtx.Services.Assessment.ProbeMany(commandContext(cmd), args, runner, onDone)
		if progress != nil {
			progress.Stop()
		}
		if err != nil {
			return err
		}

		var payload any = results
		if len(results) == 1 {
			payload = results[0]
		}
		return render(cmd.OutOrStdout(), format, payload, func(w io.Writer) {
			for _, res := range results {
				printProbeResult(w, res)
			}
		})
	},
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printProbeResult(w io.Writer, res *assessment.ProbeResult) {
	fmt.Fprintf(w, "%s %s", colorInfo("→"), colorBold(res.URL))
	if res.ScanID > 0 {
		fmt.Fprintf(w, " (scan #%d)", res.ScanID)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Risk score: %s\n", formatScoreWithColor(res.Analysis.RiskScore))
	fmt.Fprintf(w, "  %s\n", res.Analysis.Summary)

	if len(res.Analysis.EnrichedResults) > 0 {
		fmt.Fprintln(w, "  Findings:")
		for _, f := range res.Analysis.EnrichedResults {
			fmt.Fprintf(w, "    %s %s: %s (%s, CVSS %.1f)\n",
				formatSeverityWithColor(f.Severity), f.Check, f.Vulnerability, f.CWEID, f.CVSSScore)
		}
	}
	if len(res.Analysis.Recommendations) > 0 {
		fmt.Fprintln(w, "  Recommendations:")
		for _, rec := range res.Analysis.Recommendations {
			fmt.Fprintf(w, "    - %s\n", rec)
		}
	}
	fmt.Fprintln(w)
}

func init() {
	probeCmd.Flags().Bool("confirm", false, "Confirm you are authorized to scan the targets")
	probeCmd.Flags().String("format", string(formatText), "Output format: text|json|yaml")
	probeCmd.Flags().IntVar(&cliConfig.Probe.HTTPTimeoutSecs, "http-timeout", cliConfig.Probe.HTTPTimeoutSecs, "HTTP fetch timeout in seconds")
	probeCmd.Flags().IntVar(&cliConfig.Probe.PortTimeoutSecs, "port-timeout", cliConfig.Probe.PortTimeoutSecs, "TCP connect timeout in seconds")
	probeCmd.Flags().IntVar(&cliConfig.Probe.PortWorkers, "port-workers", cliConfig.Probe.PortWorkers, "Concurrent port connection attempts")
	probeCmd.Flags().IntVarP(&cliConfig.Probe.Concurrency, "concurrency", "c", cliConfig.Probe.Concurrency, "Targets probed in parallel")
	probeCmd.Flags().IntVarP(&cliConfig.Probe.RateLimit, "rate-limit", "r", cliConfig.Probe.RateLimit, "Targets started per second (0 = unlimited)")
}
