package cmd

import (
	"github.com/netrixframework/timeoutd/cmd/serve"
	"github.com/netrixframework/timeoutd/cmd/showconfig"
	"github.com/netrixframework/timeoutd/cmd/stats"
	"github.com/netrixframework/timeoutd/cmd/submit"
	"github.com/netrixframework/timeoutd/config"
	"github.com/spf13/cobra"
)

// RootCmd returns the root cobra command of the timeout service
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "timeoutd",
		Short:        "Durable wake me up later service",
		SilenceUsage: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&config.ConfigPath, "config", "c", "config.yaml", "Config file path")
	cmd.AddCommand(serve.ServeCmd())
	cmd.AddCommand(submit.SubmitCmd())
	cmd.AddCommand(stats.StatsCmd())
	cmd.AddCommand(showconfig.ConfigCmd())
	return cmd
}
