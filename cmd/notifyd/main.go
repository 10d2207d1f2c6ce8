// Command notifyd receives payment gateway notifications and marks orders paid.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourorg/gateway-notify/internal/config"
	"github.com/yourorg/gateway-notify/internal/telemetry"
)

const serviceName = "notifyd"

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "notifyd - payment gateway notification processor",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("NOTIFYD_CONFIG"), "Path to the YAML configuration file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		telemetry.InitLogger(cfg.Log.Level)
		return cfg, nil
	}

	rootCmd.AddCommand(serveCmd(load))
	rootCmd.AddCommand(reportCmd(load))
	rootCmd.AddCommand(fieldsCmd(load))
	return rootCmd
}

type configLoader func() (*config.Config, error)
