package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cybershield/shieldscan/internal/application"
	consts "github.com/cybershield/shieldscan/internal/shared/constants"
)

var cfgFile string
var resultsDir string
var verbose bool

var rootCmd = &cobra.Command{
	Use:           "shield",
	Short:         "Security posture assessment for websites, data files and access logs (authorized use only)",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}

		if !cmd.Flags().Changed("results-dir") {
			if v := viper.GetString("results_dir"); v != "" {
				resultsDir = v
			}
		}
		if resultsDir == "" {
			resultsDir = "./results"
		}
		if abs, err := filepath.Abs(resultsDir); err == nil {
			resultsDir = abs
		}
		if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create results directory: %w", err)
		}

		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		applyConfigDefaults(cmd)

		services, err := application.NewContainer(resultsDir, containerOptions(cliConfig, l))
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		appCtx := &AppContext{
			Logger:     l.Sugar(),
			ResultsDir: resultsDir,
			Config:     cliConfig,
			Services:   services,
		}
		storeAppContext(cmd, appCtx)

		appCtx.Logger.Debugf("results_dir=%s", resultsDir)
		return nil
	},
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".shield")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("SHIELD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit --config must exist
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func containerOptions(cfg *CLIConfig, logger *zap.Logger) application.Options {
	return application.Options{
		HTTPTimeout: time.Duration(cfg.Probe.HTTPTimeoutSecs) * time.Second,
		PortTimeout: time.Duration(cfg.Probe.PortTimeoutSecs) * time.Second,
		PortWorkers: cfg.Probe.PortWorkers,
		WebhookURL:  cfg.Notify.WebhookURL,
		Logger:      logger,
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.shield.yaml)")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results-dir", "", "directory for scan history and reports (default ./results)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable development logging")
	rootCmd.PersistentFlags().StringVar(&cliConfig.Notify.WebhookURL, "webhook-url", "", "webhook notified after each probe scan")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
