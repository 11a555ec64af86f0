package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cybershield/shieldscan/internal/application"
)

// AppContext carries state shared by every subcommand once the root
// command has loaded configuration.
type AppContext struct {
	Logger     *zap.SugaredLogger
	ResultsDir string
	Config     *CLIConfig
	Services   *application.Container
}

type appContextKey struct{}

// globalAppContext backs commands invoked without a cobra context (tests).
var globalAppContext *AppContext

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if ctx := cmd.Context(); ctx != nil {
		if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	return globalAppContext
}

// logger returns a usable logger even before PersistentPreRunE ran.
func (a *AppContext) logger() *zap.SugaredLogger {
	if a == nil || a.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return a.Logger
}
