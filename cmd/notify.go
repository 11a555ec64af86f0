package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Manage scan notifications",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a sample notification to the configured webhook",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		err := appCtx.Services.Notifier.SendTest(commandContext(cmd))
		if errors.Is(err, sharedErrors.ErrWebhookNotConfigured) {
			return fmt.Errorf("%w (set --webhook-url, notify.webhook_url or SHIELD_NOTIFY_WEBHOOK_URL)", err)
		}
		if err != nil {
			return fmt.Errorf("test notification failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Test notification sent\n", colorSuccess("✓"))
		return nil
	},
}

func init() {
	notifyCmd.AddCommand(notifyTestCmd)
}
