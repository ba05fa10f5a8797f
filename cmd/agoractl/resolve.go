package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"Agora/internal/app"
	"Agora/internal/config"
	"Agora/internal/core/identity"
	"Agora/internal/logger"
)

type resolveOptions struct {
	network     string
	username    string
	createdAt   string
	web3Signup  bool
	autoGen     bool
	noFederated bool
	delegate    bool
	timeout     time.Duration
}

func newResolveCmd(root *rootOptions) *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve <address>",
		Short: "Resolve the display identity of an address",
		Example: `  agoractl resolve 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5
  agoractl resolve HNZata7iMYWmk5RvZRTiAsSDhV8366zq2YGb3tLH5Upf74F --network kusama --delegate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			// The CLI is one-shot: a process-local cache is all it can use
			cfg.Cache.Backend = config.CacheMemory

			slogger := logger.New(os.Stderr, root.logLevel, cfg.Log.Format)

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			a, err := app.New(ctx, cfg, slogger)
			if err != nil {
				return err
			}
			defer a.Close()

			resolveOpts, err := opts.resolveOptions()
			if err != nil {
				return err
			}

			resolved, err := a.Engine.Resolve(ctx, args[0], opts.network, resolveOpts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resolved)
		},
	}

	cmd.Flags().StringVarP(&opts.network, "network", "n", "polkadot", "network the address belongs to")
	cmd.Flags().StringVar(&opts.username, "username", "", "username already known for the address")
	cmd.Flags().StringVar(&opts.createdAt, "created-at", "", "account creation time of --username (RFC3339)")
	cmd.Flags().BoolVar(&opts.web3Signup, "web3-signup", false, "the --username account was created by wallet sign-up")
	cmd.Flags().BoolVar(&opts.autoGen, "auto-generated", false, "the --username was generated by the platform, not chosen")
	cmd.Flags().BoolVar(&opts.noFederated, "no-federated", false, "skip the federated name source")
	cmd.Flags().BoolVar(&opts.delegate, "delegate", false, "also query delegate membership")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "overall resolution timeout")
	return cmd
}

func (o *resolveOptions) resolveOptions() (identity.ResolveOptions, error) {
	opts := identity.ResolveOptions{
		DisableFederatedLookup: o.noFederated,
		IncludeDelegate:        o.delegate,
	}
	if o.username == "" {
		return opts, nil
	}

	candidate := &identity.UsernameCandidate{
		Username:      o.username,
		Web3Signup:    o.web3Signup,
		AutoGenerated: o.autoGen,
	}
	if o.createdAt != "" {
		createdAt, err := time.Parse(time.RFC3339, o.createdAt)
		if err != nil {
			return opts, fmt.Errorf("--created-at must be RFC3339: %w", err)
		}
		candidate.CreatedAt = &createdAt
	}
	opts.ExplicitUsernameOverride = candidate
	return opts, nil
}
