package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cybershield/shieldscan/internal/domain/scan"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage stored probe scans",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scans, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		skip, _ := cmd.Flags().GetInt("skip")
		limit, _ := cmd.Flags().GetInt("limit")

		records, err := appCtx.Services.Assessment.History(commandContext(cmd), skip, limit)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), format, records, func(w io.Writer) {
			printHistory(w, records)
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Show one stored scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		record, err := loadScan(cmd, appCtx, args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), format, record, func(w io.Writer) {
			fmt.Fprintf(w, "Scanned %s\n", record.ScanDate.Format(scan.TrendDateLayout))
			printProbeResult(w, probeResultFromRecord(record))
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <scan-id>...",
	Short: "Delete stored scans",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		ids := make([]int, 0, len(args))
		for _, arg := range args {
			id, err := parseScanID(arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		n, err := appCtx.Services.Assessment.DeleteScans(commandContext(cmd), ids)
		if err != nil {
			return err
		}
		appCtx.logger().Infow("scans deleted", "requested", len(ids), "deleted", n)
		fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %d scans\n", colorSuccess("✓"), n)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the risk score trend and severity distribution",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		analytics, err := appCtx.Services.Assessment.Analytics(commandContext(cmd))
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), format, analytics, func(w io.Writer) {
			printAnalytics(w, analytics)
		})
	},
}

func parseScanID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q: %w", s, sharedErrors.ErrInvalidScanID)
	}
	return id, nil
}

func loadScan(cmd *cobra.Command, appCtx *AppContext, arg string) (*scan.Record, error) {
	id, err := parseScanID(arg)
	if err != nil {
		return nil, err
	}
	record, err := appCtx.Services.Assessment.Scan(commandContext(cmd), id)
	if errors.Is(err, sharedErrors.ErrScanNotFound) {
		return nil, &ScanNotFoundError{ID: id}
	}
	return record, err
}

func printHistory(w io.Writer, records []*scan.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No scans recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tURL\tRISK\tFINDINGS")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n",
			r.ID, r.ScanDate.Format(scan.TrendDateLayout), r.URL, r.RiskScore, len(r.Findings))
	}
	_ = tw.Flush()
}

func printAnalytics(w io.Writer, a scan.Analytics) {
	fmt.Fprintln(w, colorBold("Risk score trend"))
	if len(a.Trends) == 0 {
		fmt.Fprintln(w, "  (no scans)")
	}
	for _, p := range a.Trends {
		fmt.Fprintf(w, "  %s  %3d %s\n", p.Date, p.RiskScore, scoreBar(p.RiskScore))
	}
	fmt.Fprintln(w, colorBold("Findings by severity"))
	for _, sev := range []string{"High", "Medium", "Low", "Info"} {
		fmt.Fprintf(w, "  %-7s %d\n", sev, a.Distribution[sev])
	}
}

// scoreBar draws one block per 5 points.
func scoreBar(score int) string {
	n := score / 5
	if n < 0 {
		n = 0
	}
	bar := make([]rune, n)
	for i := range bar {
		bar[i] = '█'
	}
	return string(bar)
}

func init() {
	historyListCmd.Flags().Int("skip", 0, "Number of scans to skip")
	historyListCmd.Flags().Int("limit", defaultHistoryLimit, "Maximum scans to list (0 = all)")
	for _, c := range []*cobra.Command{historyListCmd, historyShowCmd, historyStatsCmd} {
		c.Flags().String("format", string(formatText), "Output format: text|json|yaml")
	}
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyStatsCmd)
}
