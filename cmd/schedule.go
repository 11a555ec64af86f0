package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cybershield/shieldscan/internal/application/scheduling"
	"github.com/cybershield/shieldscan/internal/domain/schedule"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

const scheduleTimeLayout = "2006-01-02 15:04 MST"

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring probe scans",
	Long: `Schedules store a target and a frequency. Nothing runs in the background:
call "shield schedule run --confirm" from cron or a systemd timer to scan
every schedule that is due.`,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a recurring scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		frequency, _ := cmd.Flags().GetString("frequency")

		sc, err := appCtx.Services.Scheduling.Create(commandContext(cmd), args[0], frequency)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), format, sc, func(w io.Writer) {
			fmt.Fprintf(w, "%s Schedule #%d: %s %s, next run %s\n",
				colorSuccess("✓"), sc.ID, sc.Frequency, sc.TargetURL, sc.NextRun.Format(scheduleTimeLayout))
		})
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		list, err := appCtx.Services.Scheduling.List(commandContext(cmd))
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), format, list, func(w io.Writer) {
			printSchedules(w, list)
		})
	},
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete <schedule-id>",
	Short: "Delete a schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("%q: %w", args[0], sharedErrors.ErrInvalidScheduleID)
		}
		if err := appCtx.Services.Scheduling.Delete(commandContext(cmd), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Schedule deleted\n", colorSuccess("✓"))
		return nil
	},
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan every schedule that is due",
	Long: `Scan every active schedule whose next run has passed, then move it to its
next slot. A failed scan is reported and the schedule still advances.
Only schedule systems you own or are authorized to test; --confirm records that consent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		format, err := formatFlag(cmd)
		if err != nil {
			return err
		}
		confirmed, _ := cmd.Flags().GetBool("confirm")
		if !confirmed {
			return fmt.Errorf("%w (pass --confirm)", sharedErrors.ErrConsentRequired)
		}

		results, err := appCtx.Services.Scheduling.RunDue(commandContext(cmd))
		if err != nil {
			return err
		}
		appCtx.logger().Infow("scheduled scans run", "count", len(results))
		return render(cmd.OutOrStdout(), format, results, func(w io.Writer) {
			printRunResults(w, results)
		})
	},
}

func printSchedules(w io.Writer, list []*schedule.Schedule) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No schedules.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tURL\tFREQUENCY\tNEXT RUN\tLAST SCAN")
	for _, sc := range list {
		last := "-"
		if sc.LastScanID > 0 {
			last = "#" + strconv.Itoa(sc.LastScanID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			sc.ID, sc.TargetURL, sc.Frequency, sc.NextRun.Format(scheduleTimeLayout), last)
	}
	_ = tw.Flush()
}

func printRunResults(w io.Writer, results []scheduling.RunResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No schedules due.")
		return
	}
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "%s #%d %s: %s\n", colorError("✗"), r.ScheduleID, r.Target, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s #%d %s: scan #%d, risk %d/100\n",
			colorSuccess("✓"), r.ScheduleID, r.Target, r.ScanID, r.RiskScore)
	}
}

func frequencyNames() string {
	names := make([]string, len(schedule.Frequencies))
	for i, f := range schedule.Frequencies {
		names[i] = string(f)
	}
	return strings.Join(names, "|")
}

func init() {
	scheduleAddCmd.Flags().String("frequency", string(schedule.Daily), "How often to scan: "+frequencyNames())
	scheduleRunCmd.Flags().Bool("confirm", false, "Confirm you are authorized to scan the targets")
	for _, c := range []*cobra.Command{scheduleAddCmd, scheduleListCmd, scheduleRunCmd} {
		c.Flags().String("format", string(formatText), "Output format: text|json|yaml")
	}
	scheduleCmd.AddCommand(scheduleAddCmd, scheduleListCmd, scheduleDeleteCmd, scheduleRunCmd)
}
