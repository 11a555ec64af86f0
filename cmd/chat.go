package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cybershield/shieldscan/internal/assistant"
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the assistant about a stored scan",
	Long:  "Answers questions about the risk score and findings of a scan. Uses the most recent scan unless --scan is given.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		scanID, _ := cmd.Flags().GetInt("scan")

		chatCtx, err := resolveChatContext(cmd, appCtx, scanID)
		if err != nil {
			return err
		}

		reply := assistant.NewChatAssistant().Respond(strings.Join(args, " "), chatCtx)
		printReply(cmd.OutOrStdout(), reply)
		return nil
	},
}

func resolveChatContext(cmd *cobra.Command, appCtx *AppContext, scanID int) (assistant.Context, error) {
	svc := appCtx.Services.Assessment
	if scanID > 0 {
		ctx, err := svc.ChatContext(commandContext(cmd), scanID)
		if err != nil {
			return assistant.Context{}, &ScanNotFoundError{ID: scanID}
		}
		return ctx, nil
	}

	latest, err := svc.History(commandContext(cmd), 0, 1)
	if err != nil {
		return assistant.Context{}, err
	}
	if len(latest) == 0 {
		return assistant.Context{}, nil
	}
	return assistant.Context{RiskScore: latest[0].RiskScore, FindingCount: len(latest[0].Findings)}, nil
}

func printReply(w io.Writer, reply assistant.Reply) {
	fmt.Fprintln(w, reply.Response)
	if len(reply.QuickActions) > 0 {
		fmt.Fprintf(w, "%s %s\n", colorInfo("Try:"), strings.Join(reply.QuickActions, " | "))
	}
}

func init() {
	chatCmd.Flags().Int("scan", 0, "Scan ID to discuss (default: most recent)")
}
