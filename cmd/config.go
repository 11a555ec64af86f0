package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	consts "github.com/cybershield/shieldscan/internal/shared/constants"
)

const (
	defaultServeAddr       = "127.0.0.1:8000"
	defaultServeRateLimit  = 10
	defaultServeRateBurst  = 20
	defaultShutdownTimeout = 30 * time.Second
	defaultHistoryLimit    = 10
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Probe  ProbeConfig
	Notify NotifyConfig
	Serve  ServeConfig
}

// ProbeConfig consolidates flag-driven settings for probe scans.
type ProbeConfig struct {
	HTTPTimeoutSecs int
	PortTimeoutSecs int
	PortWorkers     int
	Concurrency     int
	RateLimit       int
}

// NotifyConfig configures the post-scan webhook.
type NotifyConfig struct {
	WebhookURL string
}

// ServeConfig captures REST API options.
type ServeConfig struct {
	Addr            string
	AuthToken       string
	CORSOrigins     []string
	RateLimit       int
	RateBurst       int
	ShutdownTimeout time.Duration
	TrustProxy      bool
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Probe: ProbeConfig{
			HTTPTimeoutSecs: int(consts.HTTPFetchTimeout / time.Second),
			PortTimeoutSecs: int(consts.PortDialTimeout / time.Second),
			PortWorkers:     consts.DefaultPortWorkers,
			Concurrency:     1,
			RateLimit:       1,
		},
		Serve: ServeConfig{
			Addr:            defaultServeAddr,
			CORSOrigins:     []string{},
			RateLimit:       defaultServeRateLimit,
			RateBurst:       defaultServeRateBurst,
			ShutdownTimeout: defaultShutdownTimeout,
		},
	}
}

// applyConfigDefaults merges config file and SHIELD_* environment values into
// the runtime config when the user did not explicitly set the matching flag.
func applyConfigDefaults(cmd *cobra.Command) {
	probeFlags := probeCmd.Flags()
	applyIntDefault(probeFlags, "http-timeout", "probe.http_timeout_secs", func(v int) { cliConfig.Probe.HTTPTimeoutSecs = v })
	applyIntDefault(probeFlags, "port-timeout", "probe.port_timeout_secs", func(v int) { cliConfig.Probe.PortTimeoutSecs = v })
	applyIntDefault(probeFlags, "port-workers", "probe.port_workers", func(v int) { cliConfig.Probe.PortWorkers = v })
	applyIntDefault(probeFlags, "concurrency", "probe.concurrency", func(v int) { cliConfig.Probe.Concurrency = v })
	applyIntDefault(probeFlags, "rate-limit", "probe.rate_limit", func(v int) { cliConfig.Probe.RateLimit = v })

	applyStringDefault(cmd.Root().PersistentFlags(), "webhook-url", "notify.webhook_url", func(v string) { cliConfig.Notify.WebhookURL = v })

	serveFlags := serveCmd.Flags()
	applyStringDefault(serveFlags, "addr", "serve.addr", func(v string) { cliConfig.Serve.Addr = v })
	applyStringDefault(serveFlags, "auth-token", "serve.auth_token", func(v string) { cliConfig.Serve.AuthToken = v })
	applyIntDefault(serveFlags, "rate-limit", "serve.rate_limit", func(v int) { cliConfig.Serve.RateLimit = v })
	applyIntDefault(serveFlags, "rate-burst", "serve.rate_burst", func(v int) { cliConfig.Serve.RateBurst = v })
	applyBoolDefault(serveFlags, "trust-proxy", "serve.trust_proxy", func(v bool) { cliConfig.Serve.TrustProxy = v })
	if flagUnchanged(serveFlags, "cors-origins") && viper.IsSet("serve.cors_origins") {
		cliConfig.Serve.CORSOrigins = viper.GetStringSlice("serve.cors_origins")
	}
}

func flagUnchanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return true
	}
	flag := flags.Lookup(name)
	return flag == nil || !flag.Changed
}

func applyIntDefault(flags *pflag.FlagSet, name, key string, setter func(int)) {
	if setter == nil || !viper.IsSet(key) || !flagUnchanged(flags, name) {
		return
	}
	setter(viper.GetInt(key))
}

func applyStringDefault(flags *pflag.FlagSet, name, key string, setter func(string)) {
	if setter == nil || !viper.IsSet(key) || !flagUnchanged(flags, name) {
		return
	}
	setter(viper.GetString(key))
}

func applyBoolDefault(flags *pflag.FlagSet, name, key string, setter func(bool)) {
	if setter == nil || !viper.IsSet(key) || !flagUnchanged(flags, name) {
		return
	}
	setter(viper.GetBool(key))
}
