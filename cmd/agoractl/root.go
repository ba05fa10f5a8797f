package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"Agora/internal/config"
	"Agora/internal/core/networks"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "agoractl",
		Short: "Agora identity and thread tooling",
		Long: `agoractl resolves the display identity of an account using the same
sources, precedence and caching as the AppView, and builds reply trees from
flat message lists.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is $AGORA_CONFIG or ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newResolveCmd(opts),
		newCanonicalizeCmd(opts),
		newThreadCmd(),
	)
	return rootCmd
}

// loadConfig reads the config; commands that only need networks tolerate
// source settings they do not use
func (o *rootOptions) loadConfig() (config.Config, error) {
	return config.Load(o.configPath)
}

func (o *rootOptions) networkRegistry() (*networks.Registry, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return networks.NewRegistry(cfg.Networks)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
