package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zaptest"

	"github.com/cybershield/shieldscan/internal/application"
	"github.com/cybershield/shieldscan/internal/application/assessment"
	"github.com/cybershield/shieldscan/internal/application/scheduling"
	"github.com/cybershield/shieldscan/internal/domain/finding"
	"github.com/cybershield/shieldscan/internal/infrastructure/persistence/json"
	"github.com/cybershield/shieldscan/internal/inspector"
	"github.com/cybershield/shieldscan/internal/notify"
)

type stubProber struct{}

func (stubProber) Run(context.Context, string) []finding.Finding {
	return []finding.Finding{{
		Check:         "SSL/TLS",
		Vulnerability: "Not using HTTPS",
		Severity:      finding.SeverityHigh,
		Description:   "Communication is not encrypted.",
	}}
}

// setupTestAppContext wires real services over a temporary results
// directory with a probe suite that never touches the network.
func setupTestAppContext(t *testing.T, webhookURL string) *AppContext {
	t.Helper()
	disableColor(t)

	resultsDir := t.TempDir()
	logger := zaptest.NewLogger(t)

	repo, err := json.NewScanRepository(resultsDir)
	if err != nil {
		t.Fatalf("failed to create scan repository: %v", err)
	}
	schedules, err := json.NewScheduleRepository(resultsDir)
	if err != nil {
		t.Fatalf("failed to create schedule repository: %v", err)
	}
	notifier := notify.NewDispatcher(webhookURL, logger)
	svc := assessment.NewService(assessment.Deps{
		Prober:    stubProber{},
		Scans:     repo,
		Notifier:  notifier,
		Inspector: &inspector.Inspector{TempDir: t.TempDir()},
		Logger:    logger,
	})

	cfg := newCLIConfig()
	cfg.Notify.WebhookURL = webhookURL

	appCtx := &AppContext{
		Logger:     logger.Sugar(),
		ResultsDir: resultsDir,
		Config:     cfg,
		Services: &application.Container{
			ScanRepo:     repo,
			ScheduleRepo: schedules,
			Notifier:     notifier,
			Assessment:   svc,
			Scheduling: scheduling.NewService(scheduling.Deps{
				Schedules: schedules,
				Prober:    svc,
				Logger:    logger,
			}),
		},
	}

	original := globalAppContext
	t.Cleanup(func() { globalAppContext = original })
	return appCtx
}

// runCommand executes c's RunE with the given flags, restoring them after.
func runCommand(t *testing.T, c *cobra.Command, appCtx *AppContext, args []string, flags map[string]string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	storeAppContext(c, appCtx)

	for name, value := range flags {
		if err := c.Flags().Set(name, value); err != nil {
			t.Fatalf("failed to set --%s: %v", name, err)
		}
	}
	t.Cleanup(func() {
		for name := range flags {
			f := c.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		c.SetOut(nil)
		c.SetErr(nil)
	})

	err := c.RunE(c, args)
	return out.String(), err
}
