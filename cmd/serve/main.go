package serve

import (
	goctx "context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/netrixframework/timeoutd/config"
	"github.com/netrixframework/timeoutd/context"
	"github.com/netrixframework/timeoutd/log"
	"github.com/netrixframework/timeoutd/server"
	"github.com/spf13/cobra"
)

// ServeCmd runs the timeout service until interrupted
func ServeCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the timeout service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sigCtx, stop := signal.NotifyContext(goctx.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conf, err := config.ParseConfig(config.ConfigPath)
			if err != nil {
				return fmt.Errorf("failed to parse config: %w", err)
			}
			log.Init(conf.LogConfig)
			defer log.Destroy()

			ctx := context.NewRootContext(conf, log.DefaultLogger)
			srv, err := server.NewServer(sigCtx, ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}
			if err := srv.Start(); err != nil {
				return err
			}

			if watch {
				go watchConfig(sigCtx, config.ConfigPath)
			}

			<-sigCtx.Done()
			log.Info("Shutting down")
			return srv.Stop()
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the log level when the config file changes")
	return cmd
}

func watchConfig(ctx goctx.Context, path string) {
	logger := log.With(log.LogParams{"path": path})
	err := config.Watch(ctx, path, func(c *config.Config) {
		log.SetLevel(c.LogConfig.Level)
		logger.With(log.LogParams{"level": c.LogConfig.Level}).Info("Config reloaded")
	}, func(err error) {
		logger.With(log.LogParams{"error": err}).Error("Config reload failed, keeping previous config")
	})
	if err != nil {
		logger.With(log.LogParams{"error": err}).Warn("Not watching config")
	}
}
