package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourorg/gateway-notify/internal/reporting"
)

func reportCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise the payment attempt log",
		RunE: func(cmd *cobra.Command, args []string) error {
			since, _ := cmd.Flags().GetDuration("since")
			limit, _ := cmd.Flags().GetInt("limit")
			if since <= 0 {
				return fmt.Errorf("--since must be positive")
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			st, err := openStore(cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			attempts, err := st.ListAttempts(cmd.Context(), time.Now().Add(-since), limit)
			if err != nil {
				return fmt.Errorf("list attempts: %w", err)
			}
			report, err := reporting.NewRetrospectiveReporter().GenerateRetrospective(attempts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().Duration("since", 24*time.Hour, "How far back to read the attempt log")
	cmd.Flags().IntP("limit", "n", 0, "Maximum attempts to read (0 = all)")
	return cmd
}
