package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"Agora/internal/substrate/address"
)

func newCanonicalizeCmd(root *rootOptions) *cobra.Command {
	var network string
	var encodeAll bool

	cmd := &cobra.Command{
		Use:   "canonicalize <address>",
		Short: "Print the canonical form of an address",
		Long: `Prints the canonical account key of an address. With --all, also prints the
address encoded for every configured network.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nets, err := root.networkRegistry()
			if err != nil {
				return err
			}
			codec := address.NewCodec(nets)

			canonical, err := codec.Canonicalize(args[0], network)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !encodeAll {
				_, err = fmt.Fprintln(out, canonical)
				return err
			}

			encoded := map[string]string{"canonical": canonical.String()}
			for _, name := range nets.Names() {
				if s, err := codec.Encode(canonical, name); err == nil {
					encoded[name] = s
				}
			}
			return printJSON(out, encoded)
		},
	}

	cmd.Flags().StringVarP(&network, "network", "n", "polkadot", "network the address belongs to")
	cmd.Flags().BoolVar(&encodeAll, "all", false, "also encode for every configured network")
	return cmd
}
