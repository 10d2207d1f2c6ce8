package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/yourorg/gateway-notify/internal/adapter"
	custom_context "github.com/yourorg/gateway-notify/internal/context"
)

func fieldsCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields [order_id]",
		Short: "Print the gateway checkout form for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawMode, _ := cmd.Flags().GetString("mode")
			mode, err := adapter.ParseMode(rawMode)
			if err != nil {
				return err
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			form, err := a.checkout.Build(custom_context.NewTraceContext(cmd.Context()), args[0], mode)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(form)
		},
	}
	cmd.Flags().StringP("mode", "m", string(adapter.ModeCheckout), "checkout or backend")
	return cmd
}
