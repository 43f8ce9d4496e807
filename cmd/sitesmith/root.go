package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sitesmith/pkg/config"
)

// Viper keys. Environment variables are SITESMITH_ plus the key with dots
// replaced by underscores, e.g. SITESMITH_MODEL_BASE_URL.
const (
	keyConfig      = "config"
	keyProvider    = "model.provider"
	keyModel       = "model.name"
	keyBaseURL     = "model.base_url"
	keyAPIKey      = "model.api_key"
	keySandbox     = "sandbox.root"
	keyHost        = "webui.host"
	keyPort        = "webui.port"
	keySessionKey  = "session_key"
	keyDebug       = "debug.enabled"
	keyDebugDomain = "debug.domains"
	keyMetrics     = "metrics.enabled"
	keyNoMetrics   = "no_metrics"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SITESMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault(keyConfig, "sitesmith.yaml")
	return v
}

func newRootCmd() *cobra.Command {
	v := newViper()

	rootCmd := &cobra.Command{
		Use:           "sitesmith",
		Short:         "Build a website by chatting with a model",
		Long:          "sitesmith routes each request to a planner that writes HTML, CSS and JavaScript, saves the code to a sandbox directory and serves it next to the chat.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "sitesmith.yaml", "config file (.yaml, .yml, .json or .toml); missing means defaults")
	flags.String("provider", "", "model provider: openai, ollama, anthropic, google or offline")
	flags.String("model", "", "model name")
	flags.String("base-url", "", "model endpoint")
	flags.String("sandbox", "", "directory for the generated website")
	flags.String("session", "", "session key")
	flags.Bool("debug", false, "enable debug logging")
	flags.StringSlice("debug-domains", nil, "restrict debug logging to these domains")
	flags.Bool("no-metrics", false, "disable Prometheus metrics")

	bind := map[string]string{
		keyConfig:      "config",
		keyProvider:    "provider",
		keyModel:       "model",
		keyBaseURL:     "base-url",
		keySandbox:     "sandbox",
		keySessionKey:  "session",
		keyDebug:       "debug",
		keyDebugDomain: "debug-domains",
		keyNoMetrics:   "no-metrics",
	}
	for key, flag := range bind {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	_ = v.BindEnv(keyAPIKey)
	_ = v.BindEnv(keyMetrics)

	rootCmd.AddCommand(
		newServeCmd(v),
		newRunCmd(v),
		newMCPCmd(v),
		newUsageCmd(),
		newConfigCmd(v),
		newHashPasswordCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// overrides applies flags and environment variables on top of the config file.
func overrides(v *viper.Viper) config.Override {
	return func(cfg *config.Config) {
		setString := func(key string, dst *string) {
			if v.IsSet(key) {
				if s := v.GetString(key); s != "" {
					*dst = s
				}
			}
		}
		setString(keyProvider, &cfg.Model.Provider)
		setString(keyModel, &cfg.Model.Name)
		setString(keyBaseURL, &cfg.Model.BaseURL)
		setString(keyAPIKey, &cfg.Model.APIKey)
		setString(keySandbox, &cfg.Sandbox.Root)
		setString(keyHost, &cfg.WebUI.Host)
		setString(keySessionKey, &cfg.SessionKey)

		if v.IsSet(keyPort) {
			if port := v.GetInt(keyPort); port > 0 {
				cfg.WebUI.Port = port
			}
		}
		if v.IsSet(keyDebug) {
			cfg.Debug.Enabled = v.GetBool(keyDebug)
		}
		if v.IsSet(keyDebugDomain) {
			cfg.Debug.Domains = v.GetStringSlice(keyDebugDomain)
		}
		if v.IsSet(keyMetrics) {
			cfg.Metrics.Enabled = v.GetBool(keyMetrics)
		}
		if v.GetBool(keyNoMetrics) {
			cfg.Metrics.Enabled = false
		}
	}
}
